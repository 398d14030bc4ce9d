package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/bobg/tagstore"
)

var _ BackendServer = &Server{}

// Server serves a tagstore.Backend over gRPC.
type Server struct {
	b tagstore.Backend
}

// NewServer produces a new Server for b.
func NewServer(b tagstore.Backend) *Server {
	return &Server{b: b}
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tagstore.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	if code := status.Code(err); code != codes.Unknown {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

// Store stores the blob in req.
func (s *Server) Store(ctx context.Context, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	if err := checkType(req, StoreRequest); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	err := s.b.Store(ctx, getString(req, "partition"), getString(req, "tag"), getBytes(req, "blob"))
	if err != nil {
		return nil, toStatus(err)
	}
	return NewMessage(StoreResponse), nil
}

// Retrieve gets the blob named by req.
func (s *Server) Retrieve(ctx context.Context, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	if err := checkType(req, RetrieveRequest); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	blob, err := s.b.Retrieve(ctx, getString(req, "partition"), getString(req, "tag"))
	if err != nil {
		return nil, toStatus(err)
	}
	return retrieveResponse(blob), nil
}

// List sends the tags in the partition named by req.
func (s *Server) List(ctx context.Context, req *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
	if err := checkType(req, ListRequest); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	l, ok := s.b.(tagstore.Lister)
	if !ok {
		return status.Errorf(codes.Unimplemented, "%T backend cannot list", s.b)
	}
	err := l.List(ctx, getString(req, "partition"), getString(req, "start"), func(tag string) error {
		return send(listResponse(tag))
	})
	return toStatus(err)
}
