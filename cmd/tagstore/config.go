package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/sign"
	"github.com/bobg/tagstore/store"
)

func readConfig(filename string) (map[string]interface{}, error) {
	var conf map[string]interface{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&conf)
	default:
		dec := json.NewDecoder(f)
		dec.UseNumber()
		err = dec.Decode(&conf)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	return conf, nil
}

func backendFromConfig(ctx context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing `type` parameter")
	}
	return store.Create(ctx, typ, conf)
}

// loadKeyring reads the keyring file.
// A missing file produces an empty keyring.
func (c maincmd) loadKeyring() (*sign.Keyring, error) {
	if c.keyring == "" {
		return nil, errors.New("config file has no `keyring` parameter")
	}
	keys := sign.NewKeyring()
	b, err := os.ReadFile(c.keyring)
	if errors.Is(err, os.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading keyring %s", c.keyring)
	}
	if err = keys.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrapf(err, "in keyring %s", c.keyring)
	}
	return keys, nil
}

func (c maincmd) saveKeyring(keys *sign.Keyring) error {
	b, err := keys.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding keyring")
	}
	return errors.Wrapf(os.WriteFile(c.keyring, b, 0600), "writing keyring %s", c.keyring)
}

// collection opens the named collection on c's backend.
// A signed collection tags records by their signed subject claim.
func (c maincmd) collection(name string, signed bool) (*tagstore.Collection, error) {
	conf := tagstore.Config{Name: name, Backend: c.b}
	if signed {
		keys, err := c.loadKeyring()
		if err != nil {
			return nil, err
		}
		conf.Security = sign.New(keys)
		conf.Identity = tagstore.SignatureTag{}
	}
	return tagstore.New(conf)
}
