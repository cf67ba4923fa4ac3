package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	UDTA = Tag(0x75647461)
	META = Tag(0x6d657461)
	ILST = Tag(0x696c7374)
	DATA = Tag(0x64617461)
	// CMT is the iTunes comment item, "\xa9cmt".
	CMT = Tag(0xa9636d74)

	dataTypeUTF8 = 1
)

// VendorComment is written in the comment item of every generated movie.
const VendorComment = "NewPipe"

// NewVendorUserData returns udta/meta/ilst carrying comment as a UTF-8 item.
func NewVendorUserData(comment string) *UserData {
	hdlr := NewHandlerRefer(HandlerMetadata)
	hdlr.Reserved = handlerAppleName
	return &UserData{
		Meta: &Metadata{
			Handler: hdlr,
			Items: &ItemList{Items: []*MetadataItem{{
				Name:  CMT,
				Type:  dataTypeUTF8,
				Value: []byte(comment),
			}}},
		},
	}
}

type UserData struct {
	Meta     *Metadata
	Unknowns []Atom
	AtomPos
}

func (self UserData) Tag() Tag {
	return UDTA
}

func (self UserData) Children() (r []Atom) {
	if self.Meta != nil {
		r = append(r, self.Meta)
	}
	return append(r, self.Unknowns...)
}

func (self UserData) Len() int {
	return 8 + lenAll(self.Children())
}

func (self UserData) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(UDTA))
	n = 8 + marshalAll(b[8:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self *UserData) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		if tag == META {
			self.Meta, err = decode[Metadata](box, off)
		} else {
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}

// Metadata is the meta full box.
type Metadata struct {
	Version  uint8
	Flags    uint32
	Handler  *HandlerRefer
	Items    *ItemList
	Unknowns []Atom
	AtomPos
}

func (self Metadata) Tag() Tag {
	return META
}

func (self Metadata) Children() (r []Atom) {
	if self.Handler != nil {
		r = append(r, self.Handler)
	}
	if self.Items != nil {
		r = append(r, self.Items)
	}
	return append(r, self.Unknowns...)
}

func (self Metadata) Len() int {
	return 12 + lenAll(self.Children())
}

func (self Metadata) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(META))
	pio.PutU8(b[8:], self.Version)
	pio.PutU24BE(b[9:], self.Flags)
	n = 12 + marshalAll(b[12:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self *Metadata) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	if len(b) < 12 {
		return 0, parseErr("Version", offset+len(b), nil)
	}
	self.Version = pio.U8(b[8:])
	self.Flags = pio.U24BE(b[9:])
	return walk(b, 12, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case HDLR:
			self.Handler, err = decode[HandlerRefer](box, off)
		case ILST:
			self.Items, err = decode[ItemList](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}

type ItemList struct {
	Items []*MetadataItem
	AtomPos
}

func (self ItemList) Tag() Tag {
	return ILST
}

func (self ItemList) Children() (r []Atom) {
	for _, item := range self.Items {
		r = append(r, item)
	}
	return
}

func (self ItemList) Len() int {
	return 8 + lenAll(self.Children())
}

func (self ItemList) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(ILST))
	n = 8 + marshalAll(b[8:], self.Children())
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (self *ItemList) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		var item *MetadataItem
		if item, err = decode[MetadataItem](box, off); err == nil {
			self.Items = append(self.Items, item)
		}
		return
	})
}

// MetadataItem is one ilst entry holding a single data box.
type MetadataItem struct {
	Name   Tag
	Type   uint32
	Locale uint32
	Value  []byte
	AtomPos
}

func (self MetadataItem) Tag() Tag {
	return self.Name
}

func (self MetadataItem) Children() []Atom {
	return nil
}

func (self MetadataItem) Len() int {
	return 8 + 16 + len(self.Value)
}

func (self MetadataItem) Marshal(b []byte) (n int) {
	n = self.Len()
	pio.PutU32BE(b[0:], uint32(n))
	pio.PutU32BE(b[4:], uint32(self.Name))
	pio.PutU32BE(b[8:], uint32(n-8))
	pio.PutU32BE(b[12:], uint32(DATA))
	pio.PutU32BE(b[16:], self.Type)
	pio.PutU32BE(b[20:], self.Locale)
	copy(b[24:], self.Value)
	return
}

func (self *MetadataItem) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	self.Name = Tag(pio.U32BE(b[4:]))
	_, err = walk(b, 8, offset, func(tag Tag, box []byte, off int) error {
		if tag != DATA {
			return nil
		}
		if len(box) < 16 {
			return parseErr("data", off, nil)
		}
		self.Type = pio.U32BE(box[8:])
		self.Locale = pio.U32BE(box[12:])
		self.Value = box[16:]
		return nil
	})
	return len(b), err
}
