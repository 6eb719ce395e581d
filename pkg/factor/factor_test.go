package factor

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

func newFactor(t *testing.T, index party.ID) (curve.Point, *Encryption) {
	group := curve.Secp256k1{}
	pub := sample.Scalar(rand.Reader, group).ActOnBase()
	c, err := ecies.EncryptScalar(rand.Reader, pub, sample.Scalar(rand.Reader, group))
	require.NoError(t, err)
	return pub, &Encryption{TSSIndex: index, Type: TypeDirect, UserEnc: c}
}

func newTagData(t *testing.T) *TagData {
	group := curve.Secp256k1{}
	set := NewSet()
	for _, index := range []party.ID{2, 3} {
		pub, enc := newFactor(t, index)
		set.Pubs = append(set.Pubs, pub)
		set.Encs[ID(pub)] = enc
	}
	return &TagData{
		Nonce: 1,
		Commitments: []curve.Point{
			sample.Scalar(rand.Reader, group).ActOnBase(),
			sample.Scalar(rand.Reader, group).ActOnBase(),
		},
		Factors: set,
	}
}

func TestSet(t *testing.T) {
	data := newTagData(t)
	set := data.Factors
	require.NoError(t, set.Validate())

	indexes, err := set.Indexes()
	require.NoError(t, err)
	assert.Equal(t, []party.ID{2, 3}, indexes)
	assert.True(t, set.Contains(set.Pubs[1]))
	assert.Equal(t, []int{1}, set.Find(set.Pubs[1]))

	clone := set.Clone()
	clone.Pubs = append(clone.Pubs, clone.Pubs[0])
	assert.Len(t, set.Pubs, 2)
	assert.Error(t, clone.Validate())

	missing := set.Clone()
	delete(missing.Encs, ID(missing.Pubs[0]))
	assert.Error(t, missing.Validate())

	_, err = missing.Index(missing.Pubs[0])
	assert.Error(t, err)
}

func TestEncryption_Validate(t *testing.T) {
	_, enc := newFactor(t, 2)
	require.NoError(t, enc.Validate())

	bad := enc.Clone()
	bad.TSSIndex = 0
	assert.Error(t, bad.Validate())

	bad = enc.Clone()
	bad.Type = TypeHierarchical
	assert.Error(t, bad.Validate())

	bad = enc.Clone()
	bad.Type = "other"
	assert.Error(t, bad.Validate())
}

func TestTagData_Encoding(t *testing.T) {
	data := newTagData(t)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "tssNonce")
	assert.Contains(t, fields, "tssCommits")
	assert.Contains(t, fields, "factorPubs")
	assert.Contains(t, fields, "factorEncs")

	var fromJSON TagData
	require.NoError(t, json.Unmarshal(raw, &fromJSON))
	require.NoError(t, fromJSON.Validate())
	assert.True(t, fromJSON.Commitments[1].Equal(data.Commitments[1]))
	assert.True(t, fromJSON.Factors.Pubs[0].Equal(data.Factors.Pubs[0]))

	raw, err = cbor.Marshal(data)
	require.NoError(t, err)
	var fromCBOR TagData
	require.NoError(t, cbor.Unmarshal(raw, &fromCBOR))
	require.NoError(t, fromCBOR.Validate())
	pub, err := fromCBOR.PublicKey()
	require.NoError(t, err)
	assert.True(t, pub.Equal(data.Commitments[0]))
}

func TestMetadata_Current(t *testing.T) {
	m := &Metadata{Tag: DefaultTag, Tags: map[string]*TagData{DefaultTag: newTagData(t)}}
	_, err := m.Current()
	require.NoError(t, err)

	m.Tag = "other"
	_, err = m.Current()
	assert.Error(t, err)
}
