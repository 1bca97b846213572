package assets

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse the supported assets from genesis and save them
// to the database. The registry is fixed after this point.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	var assets []struct {
		Ticker  string `json:"ticker"`
		AssetID uint32 `json:"asset_id"`
		Name    string `json:"name"`
	}
	if err := opts.ReadOptions("assets", &assets); err != nil {
		return err
	}

	bucket := NewAssetBucket()
	seenIDs := make(map[uint32]string)
	for i, a := range assets {
		if !coin.IsCC(a.Ticker) {
			return errors.Wrapf(errors.ErrCurrency, "asset %d: invalid ticker %q", i, a.Ticker)
		}
		if first, ok := seenIDs[a.AssetID]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "asset %d: id %d already used by %s", i, a.AssetID, first)
		}
		seenIDs[a.AssetID] = a.Ticker
		if err := bucket.Has(db, []byte(a.Ticker)); !errors.ErrNotFound.Is(err) {
			return errors.Wrapf(errors.ErrDuplicate, "asset %d: ticker %s declared twice", i, a.Ticker)
		}
		info := AssetInfo{
			Metadata: &weave.Metadata{Schema: 1},
			AssetID:  a.AssetID,
			Name:     a.Name,
		}
		if err := info.Validate(); err != nil {
			return errors.Wrapf(err, "asset %d is invalid", i)
		}
		if _, err := bucket.Put(db, []byte(a.Ticker), &info); err != nil {
			return errors.Wrapf(err, "store asset %d", i)
		}
	}
	return nil
}
