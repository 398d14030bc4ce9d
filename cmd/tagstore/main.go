// Command tagstore stores and retrieves records in tagged collections.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bobg/subcmd"

	"github.com/bobg/tagstore"
	_ "github.com/bobg/tagstore/store/bt"
	_ "github.com/bobg/tagstore/store/compress"
	_ "github.com/bobg/tagstore/store/file"
	_ "github.com/bobg/tagstore/store/gcs"
	_ "github.com/bobg/tagstore/store/logging"
	_ "github.com/bobg/tagstore/store/lru"
	_ "github.com/bobg/tagstore/store/mem"
	_ "github.com/bobg/tagstore/store/pg"
	_ "github.com/bobg/tagstore/store/redis"
	_ "github.com/bobg/tagstore/store/replica"
	_ "github.com/bobg/tagstore/store/rpc"
	_ "github.com/bobg/tagstore/store/sqlite3"
)

type maincmd struct {
	b       tagstore.Backend
	keyring string
}

func main() {
	config := flag.String("config", "tagstore.json", "path to config file (JSON, or YAML if it ends in .yaml or .yml)")
	flag.Parse()

	if *config == "" {
		log.Fatal("Config value not set")
	}

	ctx := context.Background()

	conf, err := readConfig(*config)
	if err != nil {
		log.Fatal(err)
	}
	b, err := backendFromConfig(ctx, conf)
	if err != nil {
		log.Fatalf("Config file %s: %s", *config, err)
	}
	keyring, _ := conf["keyring"].(string)

	err = subcmd.Run(ctx, maincmd{b: b, keyring: keyring}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"get":    c.get,
		"keygen": c.keygen,
		"ls":     c.ls,
		"put":    c.put,
		"serve":  c.serve,
		"sync":   c.sync,
	}
}
