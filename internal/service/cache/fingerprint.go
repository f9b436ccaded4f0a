package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"StockResearch/internal/domain/models"
)

// Fingerprint is a sha256 digest over the full candle content: the count,
// then every candle's time and the exact bit patterns of its OHLCV values.
// Any single changed value yields a different digest.
func Fingerprint(candles []models.Candle) string {
	h := sha256.New()
	var buf [8]byte
	put := func(u uint64) {
		binary.BigEndian.PutUint64(buf[:], u)
		h.Write(buf[:])
	}

	put(uint64(len(candles)))
	for _, c := range candles {
		put(uint64(c.Time.UnixNano()))
		put(math.Float64bits(c.Open))
		put(math.Float64bits(c.High))
		put(math.Float64bits(c.Low))
		put(math.Float64bits(c.Close))
		put(math.Float64bits(c.Volume))
	}
	return hex.EncodeToString(h.Sum(nil))
}
