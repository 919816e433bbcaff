package planfile_test

import (
	"bytes"
	"testing"
	"time"

	trim "github.com/segmentio/kafka-trim"
	"github.com/segmentio/kafka-trim/compress"
	"github.com/segmentio/kafka-trim/planfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func examplePlan() *trim.DeleteRecordsRequest {
	return trim.NewDeleteRecordsBuilder(2*time.Second, map[trim.TopicPartition]int64{
		{Topic: "events", Partition: 0}: 120,
		{Topic: "events", Partition: 1}: trim.HighWatermark,
		{Topic: "audit", Partition: 3}:  7,
	}).Build(0)
}

func TestWriteRead(t *testing.T) {
	codecs := []compress.Compression{
		compress.None,
		compress.Gzip,
		compress.Snappy,
		compress.Lz4,
		compress.Zstd,
	}

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			req := examplePlan()

			b := new(bytes.Buffer)
			require.NoError(t, planfile.Write(b, req, codec))
			assert.Equal(t, []byte("KTRM"), b.Bytes()[:4])

			got, h, err := planfile.Read(b)
			require.NoError(t, err)
			assert.Equal(t, planfile.Header{Format: planfile.Format, Compression: codec, Version: 0}, h)
			assert.Equal(t, req.Offsets(), got.Offsets())
			assert.Equal(t, req.Timeout(), got.Timeout())
			assert.Equal(t, req.String(), got.String())
		})
	}
}

func TestWriteUnsupportedVersion(t *testing.T) {
	req := trim.NewDeleteRecordsBuilder(time.Second, nil).Build(1)
	b := new(bytes.Buffer)
	err := planfile.Write(b, req, compress.None)
	assert.ErrorIs(t, err, trim.ErrUnsupportedVersion)
	assert.Zero(t, b.Len())
}

func TestWriteUnknownCodec(t *testing.T) {
	err := planfile.Write(new(bytes.Buffer), examplePlan(), compress.Compression(9))
	assert.ErrorIs(t, err, planfile.ErrUnknownCodec)
}

func TestReadErrors(t *testing.T) {
	valid := new(bytes.Buffer)
	require.NoError(t, planfile.Write(valid, examplePlan(), compress.None))

	patch := func(i int, v byte) []byte {
		b := bytes.Clone(valid.Bytes())
		b[i] = v
		return b
	}

	tests := []struct {
		scenario string
		input    []byte
		err      error
	}{
		{"empty file", nil, planfile.ErrBadMagic},
		{"short header", []byte("KTR"), planfile.ErrBadMagic},
		{"bad magic", patch(0, 'X'), planfile.ErrBadMagic},
		{"unknown format", patch(4, 2), planfile.ErrUnknownFormat},
		{"unknown codec", patch(5, 7), planfile.ErrUnknownCodec},
		{"unsupported version", patch(7, 1), trim.ErrUnsupportedVersion},
		{"truncated body", valid.Bytes()[:valid.Len()-2], trim.ErrMalformedMessage},
		{"trailing bytes", append(bytes.Clone(valid.Bytes()), 0), trim.ErrMalformedMessage},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			_, _, err := planfile.Read(bytes.NewReader(test.input))
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestReadCorruptCompressedBody(t *testing.T) {
	b := new(bytes.Buffer)
	require.NoError(t, planfile.Write(b, examplePlan(), compress.Gzip))

	data := b.Bytes()[:b.Len()-4]
	_, h, err := planfile.Read(bytes.NewReader(data))
	assert.Error(t, err)
	assert.Equal(t, compress.Gzip, h.Compression)
}

func TestReadBodyTooLarge(t *testing.T) {
	body, err := examplePlan().MarshalBinary()
	require.NoError(t, err)

	for _, codec := range []compress.Compression{compress.None, compress.Gzip} {
		t.Run(codec.String(), func(t *testing.T) {
			b := new(bytes.Buffer)
			require.NoError(t, planfile.Write(b, examplePlan(), codec))
			plan := b.Bytes()

			planfile.SetMaxBodySize(t, int64(len(body)-1))
			_, h, err := planfile.Read(bytes.NewReader(plan))
			assert.ErrorIs(t, err, planfile.ErrBodyTooLarge)
			assert.Equal(t, codec, h.Compression)

			planfile.SetMaxBodySize(t, int64(len(body)))
			got, _, err := planfile.Read(bytes.NewReader(plan))
			require.NoError(t, err)
			assert.Equal(t, examplePlan().Offsets(), got.Offsets())
		})
	}
}
