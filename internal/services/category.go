package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

// fold lowercases and strips diacritics: "Locomoción" -> "locomocion".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// matchCategory finds label among cats ignoring case, accents and a trailing
// plural "s".
func matchCategory(cats []core.Category, label string) (core.Category, bool) {
	for _, c := range cats {
		if strings.EqualFold(c.Name, label) {
			return c, true
		}
	}
	want := fold(label)
	for _, c := range cats {
		if fold(c.Name) == want {
			return c, true
		}
	}
	for _, c := range cats {
		got := fold(c.Name)
		if got == want+"s" || got+"s" == want {
			return c, true
		}
	}
	return core.Category{}, false
}

// resolveCategory maps a display label to a stored category, falling back to
// the default bucket. A missing default is core.ErrCategoryResolution.
func resolveCategory(ctx context.Context, store ports.CategoryStore, label string) (core.Category, error) {
	label = strings.TrimSpace(label)
	if label != "" {
		c, err := store.FindCategoryByName(ctx, label)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Category{}, fmt.Errorf("find category: %w", err)
		}

		cats, err := store.ListCategories(ctx)
		if err != nil {
			return core.Category{}, fmt.Errorf("list categories: %w", err)
		}
		if c, ok := matchCategory(cats, label); ok {
			return c, nil
		}
		slog.WarnContext(ctx, "Category not found, falling back to default", "category", label, "default", core.DefaultCategoryName)
	}

	c, err := store.FindCategoryByName(ctx, core.DefaultCategoryName)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, core.ErrCategoryResolution
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find default category: %w", err)
	}
	return c, nil
}
