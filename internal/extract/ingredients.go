package extract

import (
	"regexp"
	"strings"
)

var ingredientSplit = regexp.MustCompile(`[,;\n]`)

// NormalizeIngredients pulls an ordered ingredient list out of a
// structured-data product object. Three source fields are merged, in
// this order:
//
//  1. additionalProperty entries named "inci" or "ingredients"
//     (case-insensitive), their value split on comma/semicolon/newline
//  2. a direct ingredients string, split the same way
//  3. hasIngredient entries, contributing their name (objects) or
//     themselves (strings)
//
// Duplicates keep their first occurrence. Returns nil when nothing
// contributed.
func NormalizeIngredients(pdata map[string]any) []string {
	var items []string

	if props, ok := pdata["additionalProperty"].([]any); ok {
		for _, p := range props {
			prop, ok := p.(map[string]any)
			if !ok {
				continue
			}
			name := strings.ToLower(asString(prop["name"]))
			if name != "inci" && name != "ingredients" {
				continue
			}
			if val, ok := prop["value"].(string); ok {
				items = append(items, splitIngredients(val)...)
			}
		}
	}

	if val, ok := pdata["ingredients"].(string); ok {
		items = append(items, splitIngredients(val)...)
	}

	if list, ok := pdata["hasIngredient"].([]any); ok {
		for _, v := range list {
			switch entry := v.(type) {
			case map[string]any:
				if _, present := entry["name"]; present {
					if name := asString(entry["name"]); name != "" {
						items = append(items, name)
					}
				}
			case string:
				if s := strings.TrimSpace(entry); s != "" {
					items = append(items, s)
				}
			}
		}
	}

	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// splitIngredients breaks a raw ingredient blob into trimmed non-empty
// fragments.
func splitIngredients(raw string) []string {
	var out []string
	for _, part := range ingredientSplit.Split(raw, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
