package vault

import (
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Configuration{}, migration.NoModification)
}

var _ orm.Model = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", c.Metadata.Validate())
	errs = errors.AppendField(errs, "Admin", c.Admin.Validate())
	errs = errors.AppendField(errs, "Bridge", c.Bridge.Validate())
	if c.MinLockDuration <= 0 {
		errs = errors.AppendField(errs, "MinLockDuration",
			errors.Wrap(errors.ErrInput, "must be greater than zero"))
	}
	return errs
}

func loadConf(db gconf.Store) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "vault", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}
