package column

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/encoding"
	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/format"
	"github.com/gcwind2007/druid/internal/options"
	"github.com/gcwind2007/druid/spatial"
)

// Parts are the already-built components of a column awaiting
// serialization. Exactly one of SingleIDs and MultiIDs must be set; the
// Spatial tree is optional.
type Parts struct {
	Dictionary  *encoding.GenericIndexedWriter[string]
	SingleIDs   *encoding.VSizeIntsWriter
	MultiIDs    *encoding.VSizeRaggedWriter
	BitmapIndex *encoding.GenericIndexedWriter[bitmap.Bitmap]
	Spatial     *spatial.RTree
}

// Serde is the column codec's configuration record. It has two life states:
// a descriptor (metadata only, produced when deserializing column
// descriptors) and a materialized serde holding payloads. Only the
// materialized state can write; WriteTo on a descriptor fails with
// ErrDescriptorOnly.
type Serde struct {
	singleValued bool
	serdeFactory bitmap.SerdeFactory
	parts        *materialized
}

type materialized struct {
	parts       Parts
	spatialData []byte
}

// NewDescriptor creates a descriptor-only serde from column metadata. The
// factory tag may be empty, which selects the legacy encoding.
func NewDescriptor(singleValued bool, factoryTag string) (*Serde, error) {
	sf, err := bitmap.Lookup(factoryTag)
	if err != nil {
		return nil, err
	}

	return &Serde{singleValued: singleValued, serdeFactory: sf}, nil
}

// NewSerde creates a materialized serde. The spatial tree, when present, is
// serialized here so NumBytes can report the exact total before WriteTo.
func NewSerde(sf bitmap.SerdeFactory, parts Parts) (*Serde, error) {
	if sf == nil {
		sf = bitmap.LegacySerdeFactory()
	}

	single := parts.SingleIDs != nil
	multi := parts.MultiIDs != nil
	if single == multi {
		return nil, errs.ErrAmbiguousStorage
	}
	if parts.Dictionary == nil || parts.BitmapIndex == nil {
		return nil, fmt.Errorf("%w: dictionary and bitmap index are required", errs.ErrProgrammer)
	}

	m := &materialized{parts: parts}
	if parts.Spatial != nil {
		data, err := parts.Spatial.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("spatial index: %w", err)
		}
		m.spatialData = data
	}

	return &Serde{singleValued: single, serdeFactory: sf, parts: m}, nil
}

// IsSingleValued reports the id storage variant.
func (s *Serde) IsSingleValued() bool {
	return s.singleValued
}

// BitmapSerdeFactory returns the configured bitmap serde factory.
func (s *Serde) BitmapSerdeFactory() bitmap.SerdeFactory {
	return s.serdeFactory
}

// NumBytes returns the exact number of bytes WriteTo will emit: one flag
// byte plus the serialized size of each component.
func (s *Serde) NumBytes() (int64, error) {
	if s.parts == nil {
		return 0, errs.ErrDescriptorOnly
	}

	p := s.parts.parts
	total := int64(1) + p.Dictionary.NumBytes() + p.BitmapIndex.NumBytes()
	if s.singleValued {
		total += p.SingleIDs.NumBytes()
	} else {
		total += p.MultiIDs.NumBytes()
	}
	if s.parts.spatialData != nil {
		total += 4 + int64(len(s.parts.spatialData))
	}

	return total, nil
}

// WriteTo serializes the column: flag byte, dictionary, id storage, bitmap
// index, then the length-prefixed spatial index when present. The emission
// order is the format; readers peel components off in the same order.
func (s *Serde) WriteTo(w io.Writer) (int64, error) {
	if s.parts == nil {
		return 0, errs.ErrDescriptorOnly
	}

	p := s.parts.parts

	flag := format.FlagSingleValued
	if !s.singleValued {
		flag = format.FlagMultiValued
	}

	n, err := w.Write([]byte{flag})
	written := int64(n)
	if err != nil {
		return written, err
	}

	nn, err := p.Dictionary.WriteTo(w)
	written += nn
	if err != nil {
		return written, fmt.Errorf("dictionary: %w", err)
	}

	if s.singleValued {
		nn, err = p.SingleIDs.WriteTo(w)
	} else {
		nn, err = p.MultiIDs.WriteTo(w)
	}
	written += nn
	if err != nil {
		return written, fmt.Errorf("id storage: %w", err)
	}

	nn, err = p.BitmapIndex.WriteTo(w)
	written += nn
	if err != nil {
		return written, fmt.Errorf("bitmap index: %w", err)
	}

	if s.parts.spatialData != nil {
		engine := endian.GetBigEndianEngine()
		prefix := engine.AppendUint32(nil, uint32(len(s.parts.spatialData))) //nolint:gosec

		n, err = w.Write(prefix)
		written += int64(n)
		if err != nil {
			return written, err
		}

		n, err = w.Write(s.parts.spatialData)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("spatial index: %w", err)
		}
	}

	return written, nil
}

// Descriptor is the serde metadata persisted in segment-level metadata so
// readers can reconstruct the same configuration.
type Descriptor struct {
	ValueType          format.ValueType `json:"valueType"`
	HasMultipleValues  bool             `json:"hasMultipleValues"`
	BitmapSerdeFactory string           `json:"bitmapSerdeFactory,omitempty"`
}

// Descriptor returns the metadata record for this serde.
func (s *Serde) Descriptor() Descriptor {
	return Descriptor{
		ValueType:          format.TypeString,
		HasMultipleValues:  !s.singleValued,
		BitmapSerdeFactory: s.serdeFactory.Tag(),
	}
}

// ParseDescriptor decodes a JSON descriptor into a descriptor-only serde.
// A missing bitmapSerdeFactory field selects the legacy encoding.
func ParseDescriptor(data []byte) (*Serde, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: column descriptor: %w", errs.ErrCorruptFormat, err)
	}

	return NewDescriptor(!d.HasMultipleValues, d.BitmapSerdeFactory)
}

type readerConfig struct {
	serdeFactory bitmap.SerdeFactory
	cacheSize    int
}

// ReaderOption configures column decoding.
type ReaderOption = options.Option[*readerConfig]

// WithBitmapSerdeFactory selects the bitmap encoding by its persisted tag.
// Readers that omit it decode with the legacy factory.
func WithBitmapSerdeFactory(tag string) ReaderOption {
	return options.New(func(cfg *readerConfig) error {
		sf, err := bitmap.Lookup(tag)
		if err != nil {
			return err
		}
		cfg.serdeFactory = sf

		return nil
	})
}

// WithColumnCacheSize bounds the string-lookup cache in bytes. Zero
// disables caching.
func WithColumnCacheSize(cacheBytes int) ReaderOption {
	return options.New(func(cfg *readerConfig) error {
		if cacheBytes < 0 {
			return fmt.Errorf("%w: negative column cache size", errs.ErrProgrammer)
		}
		cfg.cacheSize = cacheBytes

		return nil
	})
}

// Decode reads a serialized column from buf and registers its accessors on
// the builder. buf must span exactly one column; bytes remaining after the
// bitmap index are the spatial index, and zero remaining bytes mean the
// spatial index is absent.
//
// The views registered on the builder alias buf, which must stay valid and
// unmodified for the lifetime of the built column.
func Decode(buf []byte, builder *ColumnBuilder, opts ...ReaderOption) error {
	cfg := &readerConfig{
		serdeFactory: bitmap.LegacySerdeFactory(),
		cacheSize:    DefaultColumnCacheSize,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	if len(buf) < 1 {
		return errs.ErrBufferTooSmall
	}

	var single bool
	switch buf[0] {
	case format.FlagSingleValued:
		single = true
	case format.FlagMultiValued:
		single = false
	default:
		return errs.ErrInvalidColumnFlag
	}
	rest := buf[1:]

	dict, n, err := encoding.ReadGenericIndexed(rest, encoding.StringStrategy())
	if err != nil {
		return fmt.Errorf("dictionary: %w", err)
	}
	if !dict.Sorted() {
		return errs.ErrDictionaryUnsorted
	}
	rest = rest[n:]

	var singleIDs *encoding.VSizeInts
	var multiIDs *encoding.VSizeRagged
	if single {
		ids, n, err := encoding.ReadVSizeInts(rest)
		if err != nil {
			return fmt.Errorf("id storage: %w", err)
		}
		singleIDs = &ids
		rest = rest[n:]
	} else {
		ids, n, err := encoding.ReadVSizeRagged(rest)
		if err != nil {
			return fmt.Errorf("id storage: %w", err)
		}
		multiIDs = &ids
		rest = rest[n:]
	}

	bitmaps, n, err := encoding.ReadGenericIndexed(rest, cfg.serdeFactory.Strategy())
	if err != nil {
		return fmt.Errorf("bitmap index: %w", err)
	}
	if bitmaps.Size() != dict.Size() {
		return errs.ErrBitmapCountMismatch
	}
	rest = rest[n:]

	factory := cfg.serdeFactory.Factory()

	var rtree *spatial.ImmutableRTree
	if len(rest) > 0 {
		if len(rest) < 4 {
			return errs.ErrBufferTooSmall
		}
		numBytes := int(endian.GetBigEndianEngine().Uint32(rest[:4]))
		if len(rest)-4 != numBytes {
			return errs.ErrTrailingBytes
		}

		rtree, err = spatial.RTreeStrategy(factory).FromBytes(rest[4:])
		if err != nil {
			return fmt.Errorf("spatial index: %w", err)
		}
	}

	cacheSize := cfg.cacheSize

	builder.SetValueType(format.TypeString).
		SetHasMultipleValues(!single).
		SetDictionaryEncodedColumn(func() (*DictionaryColumn, error) {
			return &DictionaryColumn{
				dict:      dict,
				singleIDs: singleIDs,
				multiIDs:  multiIDs,
				bitmaps:   bitmaps,
				factory:   factory,
				spatial:   rtree,
				cache:     newStringCache(cacheSize),
			}, nil
		}).
		SetBitmapIndex(func() (*BitmapIndex, error) {
			return &BitmapIndex{dict: dict, bitmaps: bitmaps, factory: factory}, nil
		})

	if rtree != nil {
		builder.SetSpatialIndex(func() (*spatial.ImmutableRTree, error) {
			return rtree, nil
		})
	}

	return nil
}
