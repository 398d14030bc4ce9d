package rpc

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/bobg/tagstore"
	"github.com/bobg/tagstore/store"
)

var _ tagstore.Lister = &Client{}

// Client is a tagstore backend that is a client of a remote Server.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient produces a new Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func fromStatus(err error, format string, args ...interface{}) error {
	if status.Code(err) == codes.NotFound {
		return errors.Wrapf(tagstore.ErrNotFound, format, args...)
	}
	return tagstore.StorageError(err, format, args...)
}

// Store implements tagstore.Backend.Store.
func (c *Client) Store(ctx context.Context, partition, tag string, blob []byte) error {
	err := c.cc.Invoke(ctx, storeMethod, storeRequest(partition, tag, blob), NewMessage(StoreResponse))
	if err != nil {
		return fromStatus(err, "storing %s/%s", partition, tag)
	}
	return nil
}

// Retrieve implements tagstore.Backend.Retrieve.
func (c *Client) Retrieve(ctx context.Context, partition, tag string) ([]byte, error) {
	resp := NewMessage(RetrieveResponse)
	if err := c.cc.Invoke(ctx, retrieveMethod, retrieveRequest(partition, tag), resp); err != nil {
		return nil, fromStatus(err, "retrieving %s/%s", partition, tag)
	}
	return getBytes(resp, "blob"), nil
}

// List implements tagstore.Lister.List.
func (c *Client) List(ctx context.Context, partition, start string, f func(string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], listMethod)
	if err != nil {
		return fromStatus(err, "listing %s", partition)
	}
	if err = stream.SendMsg(listRequest(partition, start)); err != nil {
		return fromStatus(err, "sending request")
	}
	if err = stream.CloseSend(); err != nil {
		return fromStatus(err, "closing send direction")
	}
	for {
		resp := NewMessage(ListResponse)
		err := stream.RecvMsg(resp)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fromStatus(err, "receiving response")
		}
		if err = f(getString(resp, "tag")); err != nil {
			return err
		}
	}
}

func init() {
	store.Register("rpc", func(_ context.Context, conf map[string]interface{}) (tagstore.Backend, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		var opts []grpc.DialOption
		if insec, _ := conf["insecure"].(bool); insec {
			opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		}
		cc, err := grpc.NewClient(addr, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", addr)
		}
		return NewClient(cc), nil
	})
}
