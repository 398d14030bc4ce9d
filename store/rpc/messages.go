package rpc

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// The descriptor of tagstore.proto.
// Keep the two in sync.
var fileDescriptorProto = &descriptorpb.FileDescriptorProto{
	Name:    proto.String("tagstore.proto"),
	Package: proto.String("tagstore"),
	Syntax:  proto.String("proto3"),
	Options: &descriptorpb.FileOptions{GoPackage: proto.String("github.com/bobg/tagstore/store/rpc")},
	MessageType: []*descriptorpb.DescriptorProto{
		message("StoreRequest", stringField("partition", 1), stringField("tag", 2), bytesField("blob", 3)),
		message("StoreResponse"),
		message("RetrieveRequest", stringField("partition", 1), stringField("tag", 2)),
		message("RetrieveResponse", bytesField("blob", 1)),
		message("ListRequest", stringField("partition", 1), stringField("start", 2)),
		message("ListResponse", stringField("tag", 1)),
	},
	Service: []*descriptorpb.ServiceDescriptorProto{{
		Name: proto.String("Backend"),
		Method: []*descriptorpb.MethodDescriptorProto{
			method("Store", "StoreRequest", "StoreResponse", false),
			method("Retrieve", "RetrieveRequest", "RetrieveResponse", false),
			method("List", "ListRequest", "ListResponse", true),
		},
	}},
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func stringField(name string, num int32) *descriptorpb.FieldDescriptorProto {
	return field(name, num, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func bytesField(name string, num int32) *descriptorpb.FieldDescriptorProto {
	return field(name, num, descriptorpb.FieldDescriptorProto_TYPE_BYTES)
}

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func method(name, in, out string, serverStreaming bool) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:            proto.String(name),
		InputType:       proto.String(".tagstore." + in),
		OutputType:      proto.String(".tagstore." + out),
		ServerStreaming: proto.Bool(serverStreaming),
	}
}

// File is the manifested descriptor of tagstore.proto.
var File protoreflect.FileDescriptor

func init() {
	fd, err := newFile(fileDescriptorProto)
	if err != nil {
		panic(err)
	}
	File = fd
}

func newFile(fdp *descriptorpb.FileDescriptorProto) (protoreflect.FileDescriptor, error) {
	f, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{fdp}})
	if err != nil {
		return nil, errors.Wrap(err, "creating Files object")
	}
	fd, err := f.FindFileByPath(fdp.GetName())
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", fdp.GetName())
	}
	if n := fd.Services().Len(); n != 1 {
		return nil, fmt.Errorf("got %d services in %s (want 1)", n, fdp.GetName())
	}
	return fd, nil
}

// Message names.
const (
	StoreRequest     protoreflect.Name = "StoreRequest"
	StoreResponse    protoreflect.Name = "StoreResponse"
	RetrieveRequest  protoreflect.Name = "RetrieveRequest"
	RetrieveResponse protoreflect.Name = "RetrieveResponse"
	ListRequest      protoreflect.Name = "ListRequest"
	ListResponse     protoreflect.Name = "ListResponse"
)

// NewMessage produces an empty message of the named type.
// It panics if tagstore.proto has no such message.
func NewMessage(name protoreflect.Name) *dynamicpb.Message {
	md := File.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("no message %s in %s", name, File.Path()))
	}
	return dynamicpb.NewMessage(md)
}

func fieldDesc(m *dynamicpb.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("no field %s in %s", name, m.Descriptor().FullName()))
	}
	return fd
}

func setString(m *dynamicpb.Message, name protoreflect.Name, v string) {
	m.Set(fieldDesc(m, name), protoreflect.ValueOfString(v))
}

func setBytes(m *dynamicpb.Message, name protoreflect.Name, v []byte) {
	m.Set(fieldDesc(m, name), protoreflect.ValueOfBytes(v))
}

func getString(m *dynamicpb.Message, name protoreflect.Name) string {
	return m.Get(fieldDesc(m, name)).String()
}

func getBytes(m *dynamicpb.Message, name protoreflect.Name) []byte {
	return m.Get(fieldDesc(m, name)).Bytes()
}

// checkType reports an error if m is not of the named type.
func checkType(m *dynamicpb.Message, name protoreflect.Name) error {
	if got := m.Descriptor().Name(); got != name {
		return fmt.Errorf("got %s message, want %s", got, name)
	}
	return nil
}

func storeRequest(partition, tag string, blob []byte) *dynamicpb.Message {
	m := NewMessage(StoreRequest)
	setString(m, "partition", partition)
	setString(m, "tag", tag)
	setBytes(m, "blob", blob)
	return m
}

func retrieveRequest(partition, tag string) *dynamicpb.Message {
	m := NewMessage(RetrieveRequest)
	setString(m, "partition", partition)
	setString(m, "tag", tag)
	return m
}

func retrieveResponse(blob []byte) *dynamicpb.Message {
	m := NewMessage(RetrieveResponse)
	setBytes(m, "blob", blob)
	return m
}

func listRequest(partition, start string) *dynamicpb.Message {
	m := NewMessage(ListRequest)
	setString(m, "partition", partition)
	setString(m, "start", start)
	return m
}

func listResponse(tag string) *dynamicpb.Message {
	m := NewMessage(ListResponse)
	setString(m, "tag", tag)
	return m
}
