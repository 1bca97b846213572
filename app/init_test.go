package app

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenInitOptions(t *testing.T) {
	cases := map[string]struct {
		args       []string
		wantTicker string
		wantAddr   string
	}{
		"default ticker":   {nil, "DOT", ""},
		"custom ticker":    {[]string{"KSM"}, "KSM", ""},
		"ticker and address": {
			[]string{"DOT", "C0FFEE00C0FFEE00C0FFEE00C0FFEE00C0FFEE00"},
			"DOT",
			"C0FFEE00C0FFEE00C0FFEE00C0FFEE00C0FFEE00",
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			raw, err := GenInitOptions(tc.args)
			assert.Nil(t, err)

			var opts weave.Options
			assert.Nil(t, json.Unmarshal(raw, &opts))

			var accounts []struct {
				Address weave.Address `json:"address"`
			}
			assert.Nil(t, opts.ReadOptions("cash", &accounts))
			if len(accounts) != 1 {
				t.Fatalf("want one genesis account, got %d", len(accounts))
			}
			if tc.wantAddr != "" {
				assert.Equal(t, tc.wantAddr, accounts[0].Address.String())
			}

			var vaultAssets []struct {
				Ticker  string `json:"ticker"`
				AssetID uint32 `json:"asset_id"`
			}
			assert.Nil(t, opts.ReadOptions("assets", &vaultAssets))
			if len(vaultAssets) == 0 {
				t.Fatal("genesis must register at least one asset")
			}

			var conf map[string]json.RawMessage
			assert.Nil(t, opts.ReadOptions("conf", &conf))
			for _, pkg := range []string{"cash", "vault", "migration"} {
				if _, ok := conf[pkg]; !ok {
					t.Fatalf("missing %q configuration", pkg)
				}
			}
		})
	}
}
