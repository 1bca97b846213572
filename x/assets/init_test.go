package assets

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenesisInitializer(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "assets")

	const genesis = `
	{
		"assets": [
			{"ticker": "DOT", "asset_id": 1, "name": "Polkadot"},
			{"ticker": "USDT", "asset_id": 2, "name": "Tether USD"}
		]
	}
	`
	var opts weave.Options
	assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

	var ini Initializer
	assert.Nil(t, ini.FromGenesis(opts, weave.GenesisParams{}, db))

	bucket := NewAssetBucket()
	var dot AssetInfo
	assert.Nil(t, bucket.One(db, []byte("DOT"), &dot))
	assert.Equal(t, uint32(1), dot.AssetID)
	assert.Equal(t, "Polkadot", dot.Name)

	var usdt AssetInfo
	assert.Nil(t, bucket.One(db, []byte("USDT"), &usdt))
	assert.Equal(t, uint32(2), usdt.AssetID)
}

func TestGenesisInitializerRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"invalid ticker": `
			{"assets": [{"ticker": "dot", "asset_id": 1, "name": "Polkadot"}]}
		`,
		"duplicate ticker": `
			{"assets": [
				{"ticker": "DOT", "asset_id": 1, "name": "Polkadot"},
				{"ticker": "DOT", "asset_id": 3, "name": "Polkadot Again"}
			]}
		`,
		"duplicate asset id": `
			{"assets": [
				{"ticker": "DOT", "asset_id": 1, "name": "Polkadot"},
				{"ticker": "USDT", "asset_id": 1, "name": "Tether USD"}
			]}
		`,
		"missing asset id": `
			{"assets": [{"ticker": "DOT", "name": "Polkadot"}]}
		`,
	}
	for testName, genesis := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "assets")

			var opts weave.Options
			assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

			var ini Initializer
			if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err == nil {
				t.Fatal("an error is expected")
			}
		})
	}
}
