package headers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/withzombies/sevenz-rust2/internal/graph"
)

func TestStreamsInfoRoundTripSingleFolderNoSubStreams(t *testing.T) {
	block := graph.NewLinearBlock([]*graph.Coder{{NumInStreams: 1, NumOutStreams: 1}})
	block.OutSizes[0] = 42
	block.HasCRC = true
	block.CRC = 0xDEADBEEF

	info := &StreamsInfo{
		PackInfo:   &PackInfo{PackPos: 0, PackSizes: []uint64{50}},
		UnpackInfo: &UnpackInfo{Folders: []*graph.Block{block}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStreamsInfo(&buf, info))

	got, err := ReadStreamsInfo(&buf)
	require.NoError(t, err)
	require.Equal(t, info.PackInfo.PackSizes, got.PackInfo.PackSizes)
	require.Len(t, got.UnpackInfo.Folders, 1)
	require.True(t, got.UnpackInfo.Folders[0].HasCRC)
	require.Equal(t, uint32(0xDEADBEEF), got.UnpackInfo.Folders[0].CRC)
}

func TestStreamsInfoRoundTripSolidSubStreams(t *testing.T) {
	block := graph.NewLinearBlock([]*graph.Coder{{NumInStreams: 1, NumOutStreams: 1}})
	block.OutSizes[0] = 30 // three 10-byte sub-streams

	info := &StreamsInfo{
		PackInfo:   &PackInfo{PackPos: 0, PackSizes: []uint64{25}},
		UnpackInfo: &UnpackInfo{Folders: []*graph.Block{block}},
		SubStreamsInfo: &SubStreamsInfo{
			NumUnpackStreamsInFolders: []int{3},
			UnpackSizes:               []uint64{10, 10, 10},
			Digests:                   []uint32{1, 2, 3},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStreamsInfo(&buf, info))

	got, err := ReadStreamsInfo(&buf)
	require.NoError(t, err)
	require.Equal(t, info.SubStreamsInfo.NumUnpackStreamsInFolders, got.SubStreamsInfo.NumUnpackStreamsInFolders)
	require.Equal(t, info.SubStreamsInfo.UnpackSizes, got.SubStreamsInfo.UnpackSizes)
	require.Equal(t, info.SubStreamsInfo.Digests, got.SubStreamsInfo.Digests)
}

func TestStreamsInfoRejectsSubStreamsWithoutUnpackInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, buf.WriteByte(TagSubStreamsInfo))

	_, err := ReadStreamsInfo(&buf)
	require.ErrorIs(t, err, ErrUnexpectedTag)
}
