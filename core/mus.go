package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the types the storage layer persists.
// These are maintained by hand; keep field order in sync with the structs.

var (
	// IDMUS serializes IDs.
	IDMUS = idMUS{}
	// UtteranceMUS serializes Utterances.
	UtteranceMUS = utteranceMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type utteranceMUS struct{}

func (utteranceMUS) Marshal(v Utterance, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.InterviewId, bs[n:])
	n += varint.Int.Marshal(int(v.Speaker), bs[n:])
	n += raw.Float64.Marshal(v.StartTime, bs[n:])
	n += raw.Float64.Marshal(v.EndTime, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += raw.Float64.Marshal(v.Confidence, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int.Marshal(int(v.Mode), bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	n += ord.String.Marshal(v.Ext.Sentiment, bs[n:])
	n += varint.Int.Marshal(len(v.Ext.Entities), bs[n:])
	for _, e := range v.Ext.Entities {
		n += ord.String.Marshal(e, bs[n:])
	}
	n += ord.Bool.Marshal(v.Ext.NeedsReview, bs[n:])
	n += ord.String.Marshal(v.Ext.ReviewReason, bs[n:])
	return n
}

func (utteranceMUS) Unmarshal(bs []byte) (v Utterance, n int, err error) {
	var (
		n1 int
		id uint64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)

	v.InterviewId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var speaker int
	speaker, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Speaker = SpeakerRole(speaker)

	v.StartTime, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EndTime, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = raw.Float64.Unmarshal(bs[n:])
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
	if length > 0 {
		v.Vector = make([]float32, length)
		for i := 0; i < length; i++ {
			v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}

	var mode int
	mode, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Mode = IngestionMode(mode)

	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = time.UnixMicro(micros).UTC()

	v.Ext.Sentiment, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length > 0 {
		v.Ext.Entities = make([]string, length)
		for i := 0; i < length; i++ {
			v.Ext.Entities[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	v.Ext.NeedsReview, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Ext.ReviewReason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (utteranceMUS) Size(v Utterance) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.InterviewId)
	size += varint.Int.Size(int(v.Speaker))
	size += raw.Float64.Size(v.StartTime)
	size += raw.Float64.Size(v.EndTime)
	size += ord.String.Size(v.Text)
	size += raw.Float64.Size(v.Confidence)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Int.Size(int(v.Mode))
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	size += ord.String.Size(v.Ext.Sentiment)
	size += varint.Int.Size(len(v.Ext.Entities))
	for _, e := range v.Ext.Entities {
		size += ord.String.Size(e)
	}
	size += ord.Bool.Size(v.Ext.NeedsReview)
	size += ord.String.Size(v.Ext.ReviewReason)
	return size
}
