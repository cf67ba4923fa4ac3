package pio

func U8(b []byte) (i uint8) {
	return b[0]
}

func U16BE(b []byte) (i uint16) {
	i = uint16(b[0])
	i <<= 8
	i |= uint16(b[1])
	return
}

func I16BE(b []byte) (i int16) {
	return int16(U16BE(b))
}

func U24BE(b []byte) (i uint32) {
	i = uint32(b[0])
	i <<= 8
	i |= uint32(b[1])
	i <<= 8
	i |= uint32(b[2])
	return
}

func I24BE(b []byte) (i int32) {
	i = int32(U24BE(b))
	if i&0x800000 != 0 {
		i |= -1 << 24
	}
	return
}

func U32BE(b []byte) (i uint32) {
	i = uint32(b[0])
	i <<= 8
	i |= uint32(b[1])
	i <<= 8
	i |= uint32(b[2])
	i <<= 8
	i |= uint32(b[3])
	return
}

func I32BE(b []byte) (i int32) {
	return int32(U32BE(b))
}

func U40BE(b []byte) (i uint64) {
	i = uint64(b[0])
	for _, v := range b[1:5] {
		i <<= 8
		i |= uint64(v)
	}
	return
}

func U64BE(b []byte) (i uint64) {
	i = uint64(U32BE(b)) << 32
	i |= uint64(U32BE(b[4:]))
	return
}

func I64BE(b []byte) (i int64) {
	return int64(U64BE(b))
}

func U16LE(b []byte) (i uint16) {
	i = uint16(b[1])
	i <<= 8
	i |= uint16(b[0])
	return
}

func U32LE(b []byte) (i uint32) {
	i = uint32(b[3])
	i <<= 8
	i |= uint32(b[2])
	i <<= 8
	i |= uint32(b[1])
	i <<= 8
	i |= uint32(b[0])
	return
}

func U64LE(b []byte) (i uint64) {
	i = uint64(U32LE(b[4:])) << 32
	i |= uint64(U32LE(b))
	return
}
