package main

import (
	"context"
	"flag"
	"fmt"
	"net"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/bobg/tagstore/store/rpc"
)

func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	addr := fs.String("addr", ":2022", "address to listen on")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	gs := grpc.NewServer()
	rpc.Register(gs, rpc.NewServer(c.b))
	defer gs.GracefulStop()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	go func() {
		<-ctx.Done()
		gs.Stop()
	}()

	fmt.Printf("Listening on %s\n", lis.Addr())

	return gs.Serve(lis)
}
