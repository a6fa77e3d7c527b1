// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	// ErrNegativeLength is returned when a decoded vector length is negative.
	ErrNegativeLength = errors.New("negative length")

	// ErrTruncatedVector is returned when fewer bytes remain than a decoded
	// vector length requires.
	ErrTruncatedVector = errors.New("truncated vector")
)

// Timestamps are stored as Unix microseconds in UTC.

var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	return ID(tmp), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

var TurnMUS = turnMUS{}

type turnMUS struct{}

func (s turnMUS) Marshal(v Turn, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Prompt, bs[n:])
	n += ord.String.Marshal(v.Response, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.Timestamp), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.InsertedAt), bs[n:])
	return
}

func (s turnMUS) Unmarshal(bs []byte) (v Turn, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Prompt, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Response, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp = microToTime(micros)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt = microToTime(micros)
	return
}

func (s turnMUS) Size(v Turn) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Prompt)
	size += ord.String.Size(v.Response)
	size += varint.Int64.Size(timeToMicro(v.Timestamp))
	return size + varint.Int64.Size(timeToMicro(v.InsertedAt))
}

var CachedEmbeddingMUS = cachedEmbeddingMUS{}

type cachedEmbeddingMUS struct{}

func (s cachedEmbeddingMUS) Marshal(v CachedEmbedding, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Model, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s cachedEmbeddingMUS) Unmarshal(bs []byte) (v CachedEmbedding, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length > (len(bs)-n)/4 {
		err = ErrTruncatedVector
		return
	}
	v.Vector = make([]float32, length)
	for i := range v.Vector {
		v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s cachedEmbeddingMUS) Size(v CachedEmbedding) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Model)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	return
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}
