package ruleeng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compareguard/ruleanalyzer/pkg/ruleeng"
)

type fileRecord struct {
	Name  string
	Attrs map[string]string
	Tags  []string
}

func TestResolveField_Struct(t *testing.T) {
	v := fileRecord{Name: "passwd", Tags: []string{"etc", "system"}}
	assert.Equal(t, "passwd", ruleeng.ResolveField(v, "Name"))
	assert.Nil(t, ruleeng.ResolveField(v, "Missing"))
}

func TestResolveField_Map(t *testing.T) {
	v := map[string]any{"name": "passwd", "size": 644}
	assert.Equal(t, "passwd", ruleeng.ResolveField(v, "name"))
	assert.Nil(t, ruleeng.ResolveField(v, "owner"))
}

func TestResolveField_SliceIndex(t *testing.T) {
	v := fileRecord{Tags: []string{"etc", "system"}}
	assert.Equal(t, "system", ruleeng.ResolveField(v, "Tags.1"))
	assert.Nil(t, ruleeng.ResolveField(v, "Tags.9"))
	assert.Nil(t, ruleeng.ResolveField(v, "Tags.notanindex"))
}

func TestResolveField_Nested(t *testing.T) {
	v := map[string]any{
		"file": fileRecord{Name: "passwd", Attrs: map[string]string{"owner": "root"}},
	}
	assert.Equal(t, "passwd", ruleeng.ResolveField(v, "file.Name"))
	assert.Equal(t, "root", ruleeng.ResolveField(v, "file.Attrs.owner"))
}

func TestResolveField_NilPropagates(t *testing.T) {
	assert.Nil(t, ruleeng.ResolveField(nil, "anything"))
	v := map[string]any{"file": nil}
	assert.Nil(t, ruleeng.ResolveField(v, "file.Name"))
}

func TestResolveField_EmptyPath(t *testing.T) {
	assert.Nil(t, ruleeng.ResolveField(fileRecord{Name: "x"}, ""))
}

func TestResolveField_ScalarDeadEnd(t *testing.T) {
	// Walking a further segment off a scalar degrades to nil rather
	// than panicking.
	v := map[string]any{"name": "passwd"}
	assert.Nil(t, ruleeng.ResolveField(v, "name.sub"))
}
