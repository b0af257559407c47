package column

import (
	"fmt"
	"sort"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/encoding"
	"github.com/gcwind2007/druid/internal/options"
	"github.com/gcwind2007/druid/spatial"
)

type writeConfig struct {
	spatial *spatial.RTree
}

// WriteOption configures the convenience column builders.
type WriteOption = options.Option[*writeConfig]

// WithSpatialIndex attaches a build-side spatial tree to the column. The
// tree must have been built with the same bitmap factory the column's serde
// factory provides.
func WithSpatialIndex(rt *spatial.RTree) WriteOption {
	return options.NoError(func(cfg *writeConfig) {
		cfg.spatial = rt
	})
}

// BuildSingleValued assembles a materialized serde from one string value
// per row: the sorted distinct dictionary, the per-row ids, and the
// per-value bitmap index are derived here. The row order is preserved.
func BuildSingleValued(values []string, sf bitmap.SerdeFactory, opts ...WriteOption) (*Serde, error) {
	cfg := &writeConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if sf == nil {
		sf = bitmap.LegacySerdeFactory()
	}

	dictionary, idOf := buildDictionary(values)

	dictWriter, bitmapWriter, rowsByID, err := indexParts(dictionary, sf)
	if err != nil {
		return nil, err
	}

	idsWriter := encoding.NewVSizeIntsWriter(maxID(len(dictionary)))
	for row, v := range values {
		id := idOf[v]
		if err := idsWriter.Write(id); err != nil {
			return nil, err
		}
		rowsByID[id] = append(rowsByID[id], uint32(row)) //nolint:gosec
	}

	if err := writeBitmaps(bitmapWriter, rowsByID, sf.Factory()); err != nil {
		return nil, err
	}

	return NewSerde(sf, Parts{
		Dictionary:  dictWriter,
		SingleIDs:   idsWriter,
		BitmapIndex: bitmapWriter,
		Spatial:     cfg.spatial,
	})
}

// BuildMultiValued assembles a materialized serde from an ordered, possibly
// empty list of string values per row. Within-row order is preserved and
// duplicates are kept; a row listing a value twice contributes one row
// ordinal to that value's bitmap.
func BuildMultiValued(rows [][]string, sf bitmap.SerdeFactory, opts ...WriteOption) (*Serde, error) {
	cfg := &writeConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if sf == nil {
		sf = bitmap.LegacySerdeFactory()
	}

	var flat []string
	for _, row := range rows {
		flat = append(flat, row...)
	}
	dictionary, idOf := buildDictionary(flat)

	dictWriter, bitmapWriter, rowsByID, err := indexParts(dictionary, sf)
	if err != nil {
		return nil, err
	}

	idsWriter := encoding.NewVSizeRaggedWriter(maxID(len(dictionary)))
	ids := make([]uint32, 0, 8)
	for row, values := range rows {
		ids = ids[:0]
		seen := make(map[uint32]bool, len(values))
		for _, v := range values {
			id := idOf[v]
			ids = append(ids, id)
			if !seen[id] {
				seen[id] = true
				rowsByID[id] = append(rowsByID[id], uint32(row)) //nolint:gosec
			}
		}
		if err := idsWriter.WriteRow(ids); err != nil {
			return nil, err
		}
	}

	if err := writeBitmaps(bitmapWriter, rowsByID, sf.Factory()); err != nil {
		return nil, err
	}

	return NewSerde(sf, Parts{
		Dictionary:  dictWriter,
		MultiIDs:    idsWriter,
		BitmapIndex: bitmapWriter,
		Spatial:     cfg.spatial,
	})
}

// buildDictionary returns the sorted distinct values and the value → id map.
func buildDictionary(values []string) ([]string, map[string]uint32) {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	dictionary := make([]string, 0, len(set))
	for v := range set {
		dictionary = append(dictionary, v)
	}
	sort.Strings(dictionary)

	idOf := make(map[string]uint32, len(dictionary))
	for i, v := range dictionary {
		idOf[v] = uint32(i) //nolint:gosec
	}

	return dictionary, idOf
}

func maxID(cardinality int) uint32 {
	if cardinality == 0 {
		return 0
	}

	return uint32(cardinality - 1) //nolint:gosec
}

func indexParts(dictionary []string, sf bitmap.SerdeFactory) (*encoding.GenericIndexedWriter[string], *encoding.GenericIndexedWriter[bitmap.Bitmap], [][]uint32, error) {
	dictWriter := encoding.NewGenericIndexedWriter(encoding.StringStrategy(), true)
	if err := dictWriter.WriteSlice(dictionary); err != nil {
		return nil, nil, nil, err
	}

	bitmapWriter := encoding.NewGenericIndexedWriter(sf.Strategy(), false)

	return dictWriter, bitmapWriter, make([][]uint32, len(dictionary)), nil
}

func writeBitmaps(w *encoding.GenericIndexedWriter[bitmap.Bitmap], rowsByID [][]uint32, factory bitmap.Factory) error {
	for id, rows := range rowsByID {
		if err := w.Write(factory.FromRows(rows...)); err != nil {
			return fmt.Errorf("bitmap for id %d: %w", id, err)
		}
	}

	return nil
}
