package ledgerstore

import (
	"fmt"
	"strings"
)

// Collection names one top-level mapping of id to record.
type Collection string

const (
	CollectionTransactions   Collection = "transactions"
	CollectionInventory      Collection = "inventory"
	CollectionMenuItems      Collection = "menuItems"
	CollectionPayroll        Collection = "payroll"
	CollectionCustomizations Collection = "customizations"
)

const maxIDLength = 128

// Collections lists every collection in a stable order.
func Collections() []Collection {
	return []Collection{
		CollectionTransactions,
		CollectionInventory,
		CollectionMenuItems,
		CollectionPayroll,
		CollectionCustomizations,
	}
}

func ParseCollection(raw string) (Collection, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	for _, c := range Collections() {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown collection %q", ErrInvalidPath, raw)
}

// Path addresses either a whole collection ("inventory") or one record ("inventory/<id>").
type Path string

func DocPath(c Collection, id string) Path {
	return Path(string(c) + "/" + id)
}

func CollectionPath(c Collection) Path {
	return Path(c)
}

// Split parses the path. id is empty for a collection path.
func (p Path) Split() (Collection, string, error) {
	raw := strings.Trim(strings.TrimSpace(string(p)), "/")
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	name, id, hasID := strings.Cut(raw, "/")
	c, err := ParseCollection(name)
	if err != nil {
		return "", "", err
	}
	if !hasID {
		return c, "", nil
	}
	if err := ValidateID(id); err != nil {
		return "", "", err
	}
	return c, id, nil
}

func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidPath)
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("%w: id %q has surrounding spaces", ErrInvalidPath, id)
	case len(id) > maxIDLength:
		return fmt.Errorf("%w: id longer than %d characters", ErrInvalidPath, maxIDLength)
	case strings.ContainsAny(id, "/.#$[]"):
		return fmt.Errorf("%w: id %q contains a reserved character", ErrInvalidPath, id)
	}
	return nil
}
