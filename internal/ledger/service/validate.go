package service

import (
	"math"
	"strings"
	"time"

	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
)

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ledgerdomain.Invalid(field, "is required")
	}
	return value, nil
}

func requirePositive(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return ledgerdomain.Invalid(field, "must be greater than zero")
	}
	return nil
}

func requireNonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return ledgerdomain.Invalid(field, "must not be negative")
	}
	return nil
}

// eventDate normalizes a transaction date. An empty date means today.
func eventDate(field, raw string, now time.Time) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return ledgerdomain.FormatDate(now), nil
	}
	return requireDate(field, raw)
}

func requireDate(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ledgerdomain.Invalid(field, "is required")
	}
	t, err := ledgerdomain.ParseDate(raw)
	if err != nil {
		return "", ledgerdomain.Invalid(field, err.Error())
	}
	return ledgerdomain.FormatDate(t), nil
}

func validateExpense(req ledgerdomain.ExpenseRequest, now time.Time) (ledgerdomain.Transaction, error) {
	if err := requirePositive("amount", req.Amount); err != nil {
		return ledgerdomain.Transaction{}, err
	}
	description, err := requireText("description", req.Description)
	if err != nil {
		return ledgerdomain.Transaction{}, err
	}
	category, err := requireText("category", req.Category)
	if err != nil {
		return ledgerdomain.Transaction{}, err
	}
	if ledgerdomain.IsReservedCategory(category) {
		return ledgerdomain.Transaction{}, ledgerdomain.Invalid("category", "is reserved for generated entries")
	}
	date, err := eventDate("date", req.Date, now)
	if err != nil {
		return ledgerdomain.Transaction{}, err
	}
	return ledgerdomain.Transaction{
		Type:        ledgerdomain.TransactionTypeExpense,
		Date:        date,
		Amount:      req.Amount,
		Description: description,
		Category:    category,
	}, nil
}

func validateInventory(req ledgerdomain.InventoryRequest, now time.Time) (ledgerdomain.InventoryItem, error) {
	name, err := requireText("name", req.Name)
	if err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	if err := requirePositive("quantity", req.Quantity); err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	unit, err := requireText("unit", req.Unit)
	if err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	if err := requirePositive("totalCost", req.TotalCost); err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	purchaseDate, err := eventDate("purchaseDate", req.PurchaseDate, now)
	if err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	expiryDate, err := requireDate("expiryDate", req.ExpiryDate)
	if err != nil {
		return ledgerdomain.InventoryItem{}, err
	}
	return ledgerdomain.InventoryItem{
		Name:         name,
		Quantity:     req.Quantity,
		Unit:         unit,
		TotalCost:    req.TotalCost,
		PurchaseDate: purchaseDate,
		ExpiryDate:   expiryDate,
	}, nil
}

func validatePayroll(req ledgerdomain.PayrollRequest, now time.Time) (ledgerdomain.PayrollEntry, error) {
	name, err := requireText("employeeName", req.EmployeeName)
	if err != nil {
		return ledgerdomain.PayrollEntry{}, err
	}
	if err := requirePositive("grossPay", req.GrossPay); err != nil {
		return ledgerdomain.PayrollEntry{}, err
	}
	if err := requireNonNegative("deductions", req.Deductions); err != nil {
		return ledgerdomain.PayrollEntry{}, err
	}
	payDate, err := eventDate("payDate", req.PayDate, now)
	if err != nil {
		return ledgerdomain.PayrollEntry{}, err
	}
	return ledgerdomain.PayrollEntry{
		EmployeeName: name,
		GrossPay:     req.GrossPay,
		Deductions:   req.Deductions,
		NetPay:       req.GrossPay - req.Deductions,
		PayDate:      payDate,
	}, nil
}

func validateMenuItem(req ledgerdomain.MenuItemRequest) (ledgerdomain.MenuItem, error) {
	name, err := requireText("name", req.Name)
	if err != nil {
		return ledgerdomain.MenuItem{}, err
	}
	if err := requirePositive("price", req.Price); err != nil {
		return ledgerdomain.MenuItem{}, err
	}
	if err := requireNonNegative("cost", req.Cost); err != nil {
		return ledgerdomain.MenuItem{}, err
	}
	category, ok := ledgerdomain.ParseMenuItemCategory(req.Category)
	if !ok {
		return ledgerdomain.MenuItem{}, ledgerdomain.Invalid("category", "must be pizza, beverage or other")
	}
	return ledgerdomain.MenuItem{Name: name, Price: req.Price, Cost: req.Cost, Category: category}, nil
}

func validateCustomization(req ledgerdomain.CustomizationRequest) (ledgerdomain.Customization, error) {
	name, err := requireText("name", req.Name)
	if err != nil {
		return ledgerdomain.Customization{}, err
	}
	if err := requireNonNegative("price", req.Price); err != nil {
		return ledgerdomain.Customization{}, err
	}
	if err := requireNonNegative("cost", req.Cost); err != nil {
		return ledgerdomain.Customization{}, err
	}
	return ledgerdomain.Customization{Name: name, Price: req.Price, Cost: req.Cost}, nil
}
