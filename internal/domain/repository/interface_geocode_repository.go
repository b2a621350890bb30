package repository

import "context"

// GeocodeRepository 座標から地名を引く逆ジオコーディング
type GeocodeRepository interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
