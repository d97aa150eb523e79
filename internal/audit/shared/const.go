package shared

const (
	Prefix          = "VOODOO JIT" // log-prefix marker emitted by every JIT line
	ZeroModeLiteral = "0x00000000" // all-zero mode register, excluded from non-zero diversity
	ZeroZLiteral    = "00000000"   // neutral depth value, excluded from the active-Z set
	ZeroPixel       = "0000"       // black RGB565 value, excluded from non-zero pixel diversity
)
