package model

import "strings"

// PlaceholderImageURL is used for logos and product images until a real file is uploaded
const PlaceholderImageURL = "https://placehold.co/600x400/EEE/31343C"

// LowStockThreshold is the quantity at or below which a product counts as low stock
const LowStockThreshold = 5

// MaxLogoSize is the largest logo upload accepted, in bytes
const MaxLogoSize = 1 << 20

// AllowedImageExtensions lists the accepted image file extensions, without the dot
var AllowedImageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// IsLowStock reports whether quantity is at or below LowStockThreshold
func IsLowStock(quantity int) bool {
	return quantity <= LowStockThreshold
}

// ImageExtension returns the lowercased extension of filename when it is an accepted image type
func ImageExtension(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", false
	}
	ext := strings.ToLower(filename[idx+1:])
	return ext, AllowedImageExtensions[ext]
}
