package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"FOBI-Map/internal/domain/model"
)

func TestCellSizeForZoom(t *testing.T) {
	cases := []struct {
		zoom     float64
		want     float64
		gridType model.GridType
	}{
		{22, 0.005, model.GridTypeTiny},
		{14, 0.005, model.GridTypeTiny},
		{13.9, 0.01, model.GridTypeVerySmall},
		{12, 0.01, model.GridTypeVerySmall},
		{10, 0.02, model.GridTypeSmall},
		{9, 0.05, model.GridTypeMediumSmall},
		{8, 0.1, model.GridTypeMedium},
		{7, 0.15, model.GridTypeMediumLarge},
		{6, 0.2, model.GridTypeLarge},
		{5, 0.3, model.GridTypeVeryLarge},
		{4.99, 0.5, model.GridTypeExtremelyLarge},
		{0, 0.5, model.GridTypeExtremelyLarge},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CellSizeForZoom(tc.zoom), "zoom=%v", tc.zoom)
		assert.Equal(t, tc.gridType, GridTypeForZoom(tc.zoom), "zoom=%v", tc.zoom)
	}
}

func TestCellSizeForZoom_範囲外のズーム(t *testing.T) {
	assert.Equal(t, 0.005, CellSizeForZoom(30))
	assert.Equal(t, 0.5, CellSizeForZoom(-4))
	assert.Equal(t, 0.5, CellSizeForZoom(math.NaN()))
	assert.Equal(t, 0.005, CellSizeForZoom(math.Inf(1)))
}

func TestCellSizeForZoom_単調非増加(t *testing.T) {
	prev := CellSizeForZoom(0)
	for z := 0.0; z <= 22; z += 0.25 {
		size := CellSizeForZoom(z)
		assert.Greater(t, size, 0.0)
		assert.LessOrEqual(t, size, prev, "zoom=%v", z)
		assert.Equal(t, size, CellSizeForGridType(GridTypeForZoom(z)))
		prev = size
	}
}

func TestCellSizeForGridType_未知の種別(t *testing.T) {
	assert.Equal(t, 0.5, CellSizeForGridType(model.GridType("unknown")))
}
