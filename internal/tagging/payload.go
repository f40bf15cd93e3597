package tagging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tagwright/internal/constants"
)

// ProductPayload is the subset of a products/update webhook body the engine
// reads. Everything except the id is optional; webhook bodies vary by shop
// plan and API version.
type ProductPayload struct {
	ID       int64            `json:"id"`
	Vendor   *string          `json:"vendor"`
	Tags     *string          `json:"tags"`
	Variants []ProductVariant `json:"variants"`
}

type ProductVariant struct {
	Price             *string `json:"price"`
	InventoryQuantity *int64  `json:"inventory_quantity"`
}

// ProductRecord is the canonical shape rules evaluate against. A nil field
// means the webhook carried no usable value for it; rules on that field do
// not match rather than erroring.
type ProductRecord struct {
	Price          *float64
	TotalInventory *int64
	Vendor         *string
}

// MapPayload decodes a raw webhook body into the product's GID, its canonical
// record, and its current tag set. Only a missing or non-positive id is an
// error; every other irregularity degrades to an absent field.
func MapPayload(raw json.RawMessage) (string, ProductRecord, []string, error) {
	var payload ProductPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", ProductRecord{}, nil, fmt.Errorf("failed to decode product payload: %w", err)
	}
	if payload.ID <= 0 {
		return "", ProductRecord{}, nil, fmt.Errorf("product payload has no id")
	}

	gid := constants.ProductGIDPrefix + strconv.FormatInt(payload.ID, 10)

	record := ProductRecord{
		Vendor: normalizeVendor(payload.Vendor),
	}

	if len(payload.Variants) > 0 {
		// Price comes from the first variant, matching storefront display.
		if p := payload.Variants[0].Price; p != nil {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(*p), 64); err == nil {
				record.Price = &parsed
			}
		}

		// A variant without a count contributes zero; the total is only
		// unknown when there are no variants at all.
		var total int64
		for _, variant := range payload.Variants {
			if variant.InventoryQuantity != nil {
				total += *variant.InventoryQuantity
			}
		}
		record.TotalInventory = &total
	}

	return gid, record, ParseTags(payload.Tags), nil
}

func normalizeVendor(vendor *string) *string {
	if vendor == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*vendor)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ParseTags splits the comma-separated tag string the Admin API uses into a
// trimmed, deduplicated list preserving first-seen order.
func ParseTags(tags *string) []string {
	if tags == nil {
		return nil
	}

	var result []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(*tags, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}

	return result
}
