package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	FTYP          = Tag(0x66747970)
	baseFtypSize  = 16
	bytesPerBrand = 4
)

// Brands used by the readers and writers.
var (
	BrandDash = StringToTag("dash")
	BrandISO5 = StringToTag("iso5")
	BrandMP42 = StringToTag("mp42")
	BrandM4A  = StringToTag("M4A ")
)

// NewFileType builds an ftyp box from four character brand names.
func NewFileType(major string, minor uint32, compatible ...string) *FileType {
	f := &FileType{
		MajorBrand:   uint32(StringToTag(major)),
		MinorVersion: minor,
	}
	for _, brand := range compatible {
		f.CompatibleBrands = append(f.CompatibleBrands, uint32(StringToTag(brand)))
	}
	return f
}

type FileType struct {
	MajorBrand       uint32
	MinorVersion     uint32
	CompatibleBrands []uint32
	AtomPos
}

// HasBrand reports whether brand is the major brand or one of the compatible ones.
func (f *FileType) HasBrand(brand Tag) bool {
	if f.MajorBrand == uint32(brand) {
		return true
	}
	for _, b := range f.CompatibleBrands {
		if b == uint32(brand) {
			return true
		}
	}
	return false
}

func (*FileType) Tag() Tag {
	return FTYP
}

func (f *FileType) Marshal(b []byte) (n int) {
	l := f.Len()
	pio.PutU32BE(b, uint32(l))
	pio.PutU32BE(b[4:], uint32(FTYP))
	pio.PutU32BE(b[8:], f.MajorBrand)
	pio.PutU32BE(b[12:], f.MinorVersion)
	for i, v := range f.CompatibleBrands {
		pio.PutU32BE(b[baseFtypSize+bytesPerBrand*i:], v)
	}
	return l
}

func (f *FileType) Len() int {
	return baseFtypSize + bytesPerBrand*len(f.CompatibleBrands)
}

func (f *FileType) Unmarshal(b []byte, offset int) (n int, err error) {
	f.AtomPos.setPos(offset, len(b))
	n = 8
	if len(b) < n+8 {
		return 0, parseErr("MajorBrand", offset+n, nil)
	}
	f.MajorBrand = pio.U32BE(b[n:])
	n += 4
	f.MinorVersion = pio.U32BE(b[n:])
	n += 4
	for n+bytesPerBrand <= len(b) {
		f.CompatibleBrands = append(f.CompatibleBrands, pio.U32BE(b[n:]))
		n += bytesPerBrand
	}
	return
}

func (*FileType) Children() []Atom {
	return nil
}
