package catalog

import "github.com/shopspring/decimal"

// DefaultItems returns the menu a fresh installation starts with.
func DefaultItems() []MenuItem {
	price := decimal.RequireFromString
	return []MenuItem{
		{ID: "1", Name: "Super Delicious Pizza", Price: price("12.00"), Category: "pizzas", Description: "Delicious pizza with fresh ingredients"},
		{ID: "2", Name: "Super Delicious Chicken", Price: price("15.00"), Category: "food", Description: "Grilled chicken with herbs"},
		{ID: "3", Name: "Super Delicious Burger", Price: price("10.00"), Category: "food", Description: "Juicy beef burger with fries"},
		{ID: "4", Name: "Super Delicious Chips", Price: price("6.00"), Category: "food", Description: "Crispy golden fries"},
		{ID: "5", Name: "Cheese Selection", Price: price("12.00"), Category: "food", Description: "Artisan cheese platter"},
		{ID: "6", Name: "Meat Balls", Price: price("12.00"), Category: "food", Description: "Homemade meatballs in sauce"},
		{ID: "7", Name: "Almond Crusted Salmon", Price: price("21.00"), Category: "food", Description: "Fresh salmon with almond crust"},
	}
}

// DefaultCategories returns the categories a fresh installation starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "bar", Name: "Bar"},
		{ID: "food", Name: "Food"},
		{ID: "wine", Name: "Wine"},
		{ID: "coffee", Name: "Coffee"},
		{ID: "pizzas", Name: "Pizzas"},
		{ID: "ice", Name: "Ice"},
	}
}
