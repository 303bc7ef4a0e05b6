package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Dish struct {
	ID         int64
	Name       string
	Price      pgtype.Numeric
	Discount   pgtype.Numeric
	ImageUrl   pgtype.Text
	CreateTime time.Time
	UpdateTime time.Time
}

type Order struct {
	ID             int64
	OrderNo        string
	OrderType      string
	CreateTime     time.Time
	UpdateTime     time.Time
	TotalAmount    pgtype.Numeric
	TableNum       pgtype.Text
	HasRoomFee     bool
	TakeoutTime    pgtype.Text
	TakeoutAddress pgtype.Text
	Phone          string
	Status         string
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	DishID    int64
	Quantity  int32
	UnitPrice pgtype.Numeric
}

// OrderItemDetail is an order item joined with its dish name, for
// order summaries and search results.
type OrderItemDetail struct {
	DishID    int64
	DishName  string
	Quantity  int32
	UnitPrice pgtype.Numeric
}

type Admin struct {
	ID             uuid.UUID
	Username       string
	HashedPassword string
	CreatedAt      time.Time
}
