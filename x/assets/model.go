package assets

import (
	"regexp"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &AssetInfo{}, migration.NoModification)
}

var isAssetName = regexp.MustCompile(`^[A-Za-z0-9 \-_:]{3,32}$`).MatchString

var _ orm.Model = (*AssetInfo)(nil)

func (m *AssetInfo) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.AssetID == 0 {
		errs = errors.AppendField(errs, "AssetID", errors.ErrEmpty)
	}
	if !isAssetName(m.Name) {
		errs = errors.AppendField(errs, "Name",
			errors.Wrapf(errors.ErrInput, "invalid asset name %q", m.Name))
	}
	return errs
}

// NewAssetBucket returns a bucket for keeping supported assets. Assets are
// keyed by the coin ticker.
func NewAssetBucket() orm.ModelBucket {
	b := orm.NewModelBucket("assets", &AssetInfo{})
	return migration.NewModelBucket("assets", b)
}

func RegisterQuery(qr weave.QueryRouter) {
	NewAssetBucket().Register("assets", qr)
}
