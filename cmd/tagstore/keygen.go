package main

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/tagstore/sign"
)

func (c maincmd) keygen(_ context.Context, fs *flag.FlagSet, args []string) error {
	var (
		name = fs.String("name", "", "identity to generate a key for")
		alg  = fs.String("alg", sign.Ed25519, "signature algorithm (ed25519 or dilithium3)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *name == "" {
		return errors.New("must supply -name")
	}

	keys, err := c.loadKeyring()
	if err != nil {
		return err
	}
	if _, err = keys.Generate(*name, *alg); err != nil {
		return err
	}
	if err = c.saveKeyring(keys); err != nil {
		return err
	}

	log.Printf("%s key for %s added to %s", *alg, *name, c.keyring)
	return nil
}
