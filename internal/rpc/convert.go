package rpc

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metorial/tattr/internal/models"
)

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %s must be a string", key)
	}
	return sv.StringValue, nil
}

func stringListField(s *structpb.Struct, key string) ([]string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("field %s must be a list of strings", key)
	}

	out := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("field %s[%d] must be a string", key, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func stringMapField(s *structpb.Struct, key string) (map[string]string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		return nil, fmt.Errorf("field %s must be an object of strings", key)
	}

	out := make(map[string]string, len(obj.GetFields()))
	for k, item := range obj.GetFields() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("field %s.%s must be a string", key, k)
		}
		out[k] = sv.StringValue
	}
	return out, nil
}

func stringsValue(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func hostValue(h *models.Host) map[string]interface{} {
	attrs := make(map[string]interface{}, len(h.Attributes))
	for k, v := range h.Attributes {
		attrs[k] = v
	}
	return map[string]interface{}{
		"id":         h.ID,
		"hostname":   h.Hostname,
		"tags":       stringsValue(h.Tags),
		"attributes": attrs,
	}
}

func hostFromStruct(s *structpb.Struct) (*models.Host, error) {
	if s == nil {
		return nil, fmt.Errorf("missing host")
	}
	hostname, err := stringField(s, "hostname")
	if err != nil {
		return nil, err
	}
	tags, err := stringListField(s, "tags")
	if err != nil {
		return nil, err
	}
	attrs, err := stringMapField(s, "attributes")
	if err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []string{}
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	sort.Strings(tags)

	return &models.Host{
		ID:         int64(s.GetFields()["id"].GetNumberValue()),
		Hostname:   hostname,
		Tags:       tags,
		Attributes: attrs,
	}, nil
}
