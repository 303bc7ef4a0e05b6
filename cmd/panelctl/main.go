// Command panelctl drives the panel backend from a terminal: submit
// orders, manage dishes and search or delete orders, with the same
// validation and confirmation behavior the web pages have.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fulin-pos/panel/panelclient"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Panel server base URL")
	username := flag.String("username", "", "Admin username (for admin commands)")
	password := flag.String("password", "", "Admin password (for admin commands)")
	yes := flag.Bool("yes", false, "Skip confirmation prompts")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	client := panelclient.New(*server)
	panel := panelclient.NewPanel(client)
	panel.Alert = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	if !*yes {
		panel.Confirm = confirmPrompt
	}

	var err error
	switch args[0] {
	case "dishes":
		err = runDishes(ctx, panel)
	case "submit":
		err = runSubmit(ctx, panel, args[1:])
	case "dish-add":
		err = runAdmin(ctx, client, *username, *password, func() error {
			return runDishAdd(ctx, panel, args[1:])
		})
	case "dish-update":
		err = runAdmin(ctx, client, *username, *password, func() error {
			return runDishUpdate(ctx, panel, args[1:])
		})
	case "dish-delete":
		err = runAdmin(ctx, client, *username, *password, func() error {
			return requireArgs(args[1:], 1, "dish-delete <dish-id>", func(a []string) error {
				return panel.DeleteDish(ctx, a[0])
			})
		})
	case "search":
		err = runAdmin(ctx, client, *username, *password, func() error {
			return requireArgs(args[1:], 2, "search <order_no|phone> <keyword>", func(a []string) error {
				if err := panel.SearchOrders(ctx, a[0], a[1]); err != nil {
					return err
				}
				fmt.Println(panel.SearchResult)
				return nil
			})
		})
	case "order-delete":
		err = runAdmin(ctx, client, *username, *password, func() error {
			return requireArgs(args[1:], 1, "order-delete <order-no>", func(a []string) error {
				return panel.DeleteOrder(ctx, a[0])
			})
		})
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
	if text, _ := panel.Status.Message(); text != "" && panel.Status.Visible() {
		fmt.Println(text)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: panelctl [flags] <command>

Commands:
  dishes                                         list the menu
  submit [order flags]                           submit an order
  dish-add <name> <price> [discount]             add a dish
  dish-update <id> [name=N] [price=P] [discount=D]
  dish-delete <dish-id>                          delete a dish
  search <order_no|phone> <keyword>              search orders
  order-delete <order-no>                        delete an order

Admin commands need -username and -password.`)
	flag.PrintDefaults()
}

func confirmPrompt(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runAdmin(ctx context.Context, client *panelclient.Client, username, password string, fn func() error) error {
	if username == "" || password == "" {
		return fmt.Errorf("admin commands need -username and -password")
	}
	resp, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("登录失败：%s", resp.Error)
	}
	return fn()
}

func runDishes(ctx context.Context, panel *panelclient.Panel) error {
	if err := panel.RefreshDishes(ctx); err != nil {
		return err
	}
	for _, d := range panel.Dishes {
		fmt.Printf("%d\t%s\t原价 %s\t折后 %s\n", d.DishID, d.Name, d.Price, d.FinalPrice)
	}
	return nil
}

func runSubmit(ctx context.Context, panel *panelclient.Panel, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	orderType := fs.String("type", "dinein", "Order type: dinein or takeout")
	tableNum := fs.String("table", "", "Table number (dine-in)")
	roomFee := fs.Bool("room-fee", false, "Charge the private room fee (dine-in)")
	takeoutTime := fs.String("time", "", "Delivery time (takeout)")
	takeoutAddr := fs.String("address", "", "Delivery address (takeout)")
	phone := fs.String("phone", "", "Customer phone")
	items := fs.String("items", "", "Comma-separated dish_id:quantity pairs, e.g. 1:2,3:1")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := panel.Form
	form.Switch(*orderType)
	form.TableNum = *tableNum
	form.HasRoomFee = *roomFee
	form.TakeoutTime = *takeoutTime
	form.TakeoutAddress = *takeoutAddr
	form.Phone = *phone

	if *items != "" {
		for _, pair := range strings.Split(*items, ",") {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("bad item %q, want dish_id:quantity", pair)
			}
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad dish id %q", parts[0])
			}
			qty, err := strconv.Atoi(parts[1])
			if err != nil {
				return fmt.Errorf("bad quantity %q", parts[1])
			}
			form.SetQuantity(id, qty)
		}
	}

	if err := panel.SubmitOrder(ctx); err != nil {
		return err
	}
	fmt.Println(panel.OrderResult)
	return nil
}

func runDishAdd(ctx context.Context, panel *panelclient.Panel, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: dish-add <name> <price> [discount]")
	}
	discount := "1.0"
	if len(args) > 2 {
		discount = args[2]
	}
	return panel.AddDish(ctx, args[0], args[1], discount)
}

func runDishUpdate(ctx context.Context, panel *panelclient.Panel, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: dish-update <id> [name=N] [price=P] [discount=D]")
	}
	var name, price, discount string
	for _, arg := range args[1:] {
		switch {
		case strings.HasPrefix(arg, "name="):
			name = strings.TrimPrefix(arg, "name=")
		case strings.HasPrefix(arg, "price="):
			price = strings.TrimPrefix(arg, "price=")
		case strings.HasPrefix(arg, "discount="):
			discount = strings.TrimPrefix(arg, "discount=")
		default:
			return fmt.Errorf("unknown field %q", arg)
		}
	}
	return panel.UpdateDish(ctx, args[0], name, price, discount)
}

func requireArgs(args []string, n int, usage string, fn func([]string) error) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return fn(args)
}
