package model

import "fmt"

// AssetKind partitions stored assets. Audio and image assets never share a partition.
type AssetKind string

const (
	AssetAudio AssetKind = "audio"
	AssetImage AssetKind = "image"
)

// Valid reports whether k is a known kind.
func (k AssetKind) Valid() bool {
	return k == AssetAudio || k == AssetImage
}

// ParseAssetKind converts a partition name into an AssetKind.
func ParseAssetKind(s string) (AssetKind, error) {
	k := AssetKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown asset kind %q", s)
	}
	return k, nil
}
