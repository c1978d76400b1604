package filestore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	cbor "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"

	"Postbox/internal/core/posts"
)

func init() {
	cbor.RegisterCborType(posts.Snapshot{})
	cbor.RegisterCborType(posts.PostRecord{})
	cbor.RegisterCborType(posts.CommentRecord{})
}

// Codec encodes and decodes snapshot files
type Codec interface {
	Name() string
	Encode(snap *posts.Snapshot) ([]byte, error)
	Decode(data []byte) (*posts.Snapshot, error)
}

// CodecForPath picks a codec from the file extension: ".cbor" selects DAG-CBOR, anything else JSON
func CodecForPath(path string) Codec {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return CBORCodec{}
	}
	return JSONCodec{}
}

// JSONCodec writes indented JSON, the posts.json format
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(snap *posts.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot as json: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSONCodec) Decode(data []byte) (*posts.Snapshot, error) {
	var snap posts.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
	}
	return &snap, nil
}

// CBORCodec writes the snapshot as a single DAG-CBOR block
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(snap *posts.Snapshot) ([]byte, error) {
	node, err := cbor.WrapObject(snap, mh.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot as cbor: %w", err)
	}
	return node.RawData(), nil
}

func (CBORCodec) Decode(data []byte) (*posts.Snapshot, error) {
	var snap posts.Snapshot
	if err := cbor.DecodeInto(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cbor snapshot: %w", err)
	}
	return &snap, nil
}

// BlockCID returns the content identifier of an encoded CBOR snapshot block
func BlockCID(data []byte) (string, error) {
	node, err := cbor.Decode(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to read cbor block: %w", err)
	}
	return node.Cid().String(), nil
}
