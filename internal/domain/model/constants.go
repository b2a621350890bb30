package model

// SourceConstants はアプリケーションで扱うデータソースの定数
const (
	SourceBurungnesia     Source = "burungnesia"
	SourceKupunesia       Source = "kupunesia"
	SourceFobi            Source = "fobi"
	SourceFobiBurungnesia Source = "fobi_burungnesia"
	SourceFobiKupunesia   Source = "fobi_kupunesia"
	SourceTaxa            Source = "taxa"
)

// GridTypeConstants はズーム段階ごとのグリッド種別
const (
	GridTypeTiny           GridType = "tiny"
	GridTypeVerySmall      GridType = "verySmall"
	GridTypeSmall          GridType = "small"
	GridTypeMediumSmall    GridType = "mediumSmall"
	GridTypeMedium         GridType = "medium"
	GridTypeMediumLarge    GridType = "mediumLarge"
	GridTypeLarge          GridType = "large"
	GridTypeVeryLarge      GridType = "veryLarge"
	GridTypeExtremelyLarge GridType = "extremelyLarge"
)

// BoundingShapeConstants はユーザーが描画する範囲図形の種別
const (
	ShapePolygon = "polygon"
	ShapeCircle  = "circle"
)

// MediaTypeConstants はメディア種別
const (
	MediaTypePhoto = "photo"
	MediaTypeAudio = "audio"
)

// SourceNameMap はソースIDから表示名へのマッピング
var SourceNameMap = map[Source]string{
	SourceBurungnesia:     "Burungnesia",
	SourceKupunesia:       "Kupunesia",
	SourceFobi:            "FOBI",
	SourceFobiBurungnesia: "FOBI (Burungnesia)",
	SourceFobiKupunesia:   "FOBI (Kupunesia)",
	SourceTaxa:            "Taxa",
}

// GridTypeNameMap はグリッド種別からUI表示用ラベルへのマッピング
var GridTypeNameMap = map[GridType]string{
	GridTypeTiny:           "Sangat detail",
	GridTypeVerySmall:      "Detail",
	GridTypeSmall:          "Kecil",
	GridTypeMediumSmall:    "Sedang-kecil",
	GridTypeMedium:         "Sedang",
	GridTypeMediumLarge:    "Sedang-besar",
	GridTypeLarge:          "Besar",
	GridTypeVeryLarge:      "Sangat besar",
	GridTypeExtremelyLarge: "Ekstra besar",
}
