package labelimage

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"

	"fishdecode/pkg/provenance"
	"fishdecode/pkg/tensor"
)

// DocType tags the serialized container so readers can reject unrelated
// documents. Version is the schema version; readers accept documents with
// the same major version.
const (
	DocType = "fishdecode/label-image"
	Version = 1
)

// integer dtypes a container may legally declare. The writer always emits
// int32; the reader widens narrower types.
var integerDTypes = map[string]int{
	"int8":  1,
	"int16": 2,
	"int32": 4,
}

type container struct {
	DocType       string               `json:"docType"`
	Version       int                  `json:"version"`
	DType         string               `json:"dtype"`
	Shape         []int                `json:"shape"`
	PixelTicks    tensor.PixelTicks    `json:"pixelTicks"`
	PhysicalTicks tensor.PhysicalTicks `json:"physicalTicks"`
	Log           *provenance.Log      `json:"log,omitempty"`
	Data          string               `json:"data"`
}

// Serialize writes the label image to its versioned container format. The
// array payload is packed little-endian and base64 encoded so the
// round-trip is byte exact.
func (li *LabelImage) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, li.arr.Data); err != nil {
		return nil, errors.Wrap(err, "packing label array")
	}

	doc := container{
		DocType:       DocType,
		Version:       Version,
		DType:         "int32",
		Shape:         li.arr.Shape,
		PixelTicks:    li.pixel,
		PhysicalTicks: li.physical,
		Log:           li.log,
		Data:          base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding label image container")
	}
	return out, nil
}

// Deserialize reads a label image from its versioned container format,
// reproducing array values, ticks, and log entries exactly.
func Deserialize(data []byte) (*LabelImage, error) {
	var doc container
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding label image container")
	}
	if doc.DocType != DocType {
		return nil, errors.Errorf("expected document type %q; got %q", DocType, doc.DocType)
	}
	if doc.Version != Version {
		return nil, errors.Errorf("unsupported label image version %d (reader supports %d)",
			doc.Version, Version)
	}
	width, ok := integerDTypes[doc.DType]
	if !ok {
		return nil, errors.Errorf("label image dtype must be a fixed-width integer type; got %q",
			doc.DType)
	}

	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding label array payload")
	}
	n := tensor.Size(doc.Shape)
	if len(raw) != n*width {
		return nil, errors.Errorf("label array payload holds %d bytes; shape %v with dtype %s requires %d",
			len(raw), doc.Shape, doc.DType, n*width)
	}

	values := make([]int32, n)
	switch doc.DType {
	case "int8":
		for i := 0; i < n; i++ {
			values[i] = int32(int8(raw[i]))
		}
	case "int16":
		for i := 0; i < n; i++ {
			values[i] = int32(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case "int32":
		for i := 0; i < n; i++ {
			values[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	}

	arr, err := tensor.NewInt32Image(values, doc.Shape)
	if err != nil {
		return nil, err
	}
	return FromArrayAndTicks(arr, doc.PixelTicks, doc.PhysicalTicks, doc.Log)
}
