package mask

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"fishdecode/pkg/provenance"
	"fishdecode/pkg/tensor"
)

// ArchiveDocType tags the mask archive manifest; ArchiveVersion is its
// schema version. Archives are forward-readable within a major version.
const (
	ArchiveDocType = "fishdecode/mask-collection"
	ArchiveVersion = 1
)

const manifestName = "manifest.json"

type manifest struct {
	DocType       string               `json:"docType"`
	Version       int                  `json:"version"`
	PixelTicks    tensor.PixelTicks    `json:"pixelTicks"`
	PhysicalTicks tensor.PhysicalTicks `json:"physicalTicks"`
	Log           *provenance.Log      `json:"log,omitempty"`
	Masks         []manifestMask       `json:"masks"`
}

type manifestMask struct {
	Name    string `json:"name"`
	Shape   []int  `json:"shape"`
	Offsets []int  `json:"offsets"`
}

// Save writes the collection to a portable tar.gz archive at path. The
// write is atomic: content goes to a temporary file in the same directory
// which is renamed into place on success, so a failure never leaves a
// partial archive behind.
func (c *BinaryMaskCollection) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".masks-*.tar.gz")
	if err != nil {
		return errors.Wrap(err, "creating temporary archive")
	}
	tmpName := tmp.Name()

	if err := c.writeArchive(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing archive")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "committing archive")
	}
	return nil
}

func (c *BinaryMaskCollection) writeArchive(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	m := manifest{
		DocType:       ArchiveDocType,
		Version:       ArchiveVersion,
		PixelTicks:    c.pixel,
		PhysicalTicks: c.physical,
		Log:           c.log,
	}
	for ix, entry := range c.masks {
		m.Masks = append(m.Masks, manifestMask{
			Name:    maskBlobName(ix),
			Shape:   entry.data.Mask.Shape,
			Offsets: entry.data.Offsets,
		})
	}
	manifestBytes, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encoding archive manifest")
	}
	if err := writeTarFile(tw, manifestName, manifestBytes); err != nil {
		return err
	}

	for ix, entry := range c.masks {
		if err := writeTarFile(tw, maskBlobName(ix), packBools(entry.data.Mask.Data)); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "finalizing archive")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "finalizing archive compression")
	}
	return nil
}

// FromDisk loads a collection previously written by Save. The round trip
// preserves every mask's pixel content, offsets, and coordinate ticks
// exactly; region properties are recomputed lazily from the restored
// arrays.
func FromDisk(path string) (*BinaryMaskCollection, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening mask archive")
	}
	defer fh.Close()
	return readArchive(fh)
}

func readArchive(r io.Reader) (*BinaryMaskCollection, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading archive compression")
	}
	defer gz.Close()

	var m *manifest
	blobs := make(map[string][]byte)

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading archive entry")
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "reading archive entry %s", hdr.Name)
		}
		if hdr.Name == manifestName {
			m = &manifest{}
			if err := json.Unmarshal(content, m); err != nil {
				return nil, errors.Wrap(err, "decoding archive manifest")
			}
			continue
		}
		blobs[hdr.Name] = content
	}

	if m == nil {
		return nil, errors.New("archive has no manifest")
	}
	if m.DocType != ArchiveDocType {
		return nil, errors.Errorf("expected document type %q; got %q", ArchiveDocType, m.DocType)
	}
	if m.Version != ArchiveVersion {
		return nil, errors.Errorf("unsupported mask archive version %d (reader supports %d)",
			m.Version, ArchiveVersion)
	}

	masks := make([]maskEntry, 0, len(m.Masks))
	for _, mm := range m.Masks {
		blob, ok := blobs[mm.Name]
		if !ok {
			return nil, errors.Errorf("archive is missing mask data %s", mm.Name)
		}
		if len(blob) != tensor.Size(mm.Shape) {
			return nil, errors.Errorf("mask data %s holds %d pixels; shape %v requires %d",
				mm.Name, len(blob), mm.Shape, tensor.Size(mm.Shape))
		}
		arr, err := tensor.NewBoolImage(unpackBools(blob), mm.Shape)
		if err != nil {
			return nil, err
		}
		masks = append(masks, maskEntry{
			data: MaskData{Mask: arr, Offsets: mm.Offsets},
		})
	}

	return newCollection(m.PixelTicks, m.PhysicalTicks, masks, m.Log)
}

func maskBlobName(index int) string {
	return fmt.Sprintf("masks/%05d.bin", index)
}

func writeTarFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "writing archive header for %s", name)
	}
	if _, err := tw.Write(content); err != nil {
		return errors.Wrapf(err, "writing archive entry %s", name)
	}
	return nil
}

// packBools encodes a boolean array one byte per pixel. Mask archives are
// gzip compressed, so the bit-level packing is left to the compressor.
func packBools(data []bool) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		if v {
			out[i] = 1
		}
	}
	return out
}

func unpackBools(data []byte) []bool {
	out := make([]bool, len(data))
	for i, v := range data {
		out[i] = v != 0
	}
	return out
}
