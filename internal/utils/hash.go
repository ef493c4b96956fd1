package utils

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"zoneSignalBot/internal/domain"
)

// WindowHash fingerprints a candle window by open time and OHLCV values.
// Identical windows hash identically, so it can key memoized analyses.
func WindowHash(klines []*domain.Kline) uint64 {
	d := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	write(uint64(len(klines)))
	for _, k := range klines {
		if k == nil {
			write(0)
			continue
		}
		write(uint64(k.OpenTime.UnixMilli()))
		write(math.Float64bits(k.Open))
		write(math.Float64bits(k.High))
		write(math.Float64bits(k.Low))
		write(math.Float64bits(k.Close))
		write(math.Float64bits(k.Volume))
	}
	return d.Sum64()
}
