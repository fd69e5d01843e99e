package transport

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURLNoQuery(t *testing.T) {
	got := buildURL("https://api.example.com", "/api/v1/pods", nil)
	assert.Equal(t, "https://api.example.com/api/v1/pods", got)
}

func TestBuildURLAppendsQuestionMark(t *testing.T) {
	q := url.Values{"watch": []string{"true"}}
	got := buildURL("https://api.example.com", "/api/v1/pods", q)
	assert.Equal(t, "https://api.example.com/api/v1/pods?watch=true", got)
}

func TestBuildURLEndpointEndingInQuestionMarkUsesAmpersand(t *testing.T) {
	q := url.Values{"watch": []string{"true"}}
	got := buildURL("https://api.example.com", "/api/v1/pods?", q)
	assert.Equal(t, "https://api.example.com/api/v1/pods?&watch=true", got)
}

func TestBuildURLEndpointWithExistingQueryUsesAmpersand(t *testing.T) {
	q := url.Values{"watch": []string{"true"}}
	got := buildURL("https://api.example.com", "/api/v1/pods?labelSelector=app%3Dfoo", q)
	assert.Equal(t, "https://api.example.com/api/v1/pods?labelSelector=app%3Dfoo&watch=true", got)
}

func TestResolveVerbPatchApplyUsesYAMLContentType(t *testing.T) {
	m := resolve(PatchApply)
	assert.Equal(t, "PATCH", m.method)
	assert.Equal(t, "application/apply-patch+yaml", m.contentType)
	assert.True(t, m.yamlBody)
}

func TestResolveVerbUnknownPassesThrough(t *testing.T) {
	m := resolve(Verb("HEAD"))
	assert.Equal(t, "HEAD", m.method)
	assert.Equal(t, "application/json", m.contentType)
}
