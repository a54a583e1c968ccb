package permission

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func decodePayload(t *testing.T, raw string) Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

func TestFromPayloadMixedShapes(t *testing.T) {
	p := decodePayload(t, `{
		"permissions": [
			"audits.view",
			"processes:edit",
			{"resource": "indicators", "action": "view"},
			{"codename": "documents.approve"},
			"superuser"
		],
		"roles": ["admin", {"code": "auditor"}, {"name": "Calidad"}],
		"permissions_by_resource": {"audits": ["export"]}
	}`)

	g, err := FromPayload(p)
	if err != nil {
		t.Fatalf("FromPayload: %v", err)
	}

	wantPerms := []string{
		"audits.export", "audits.view", "documents.approve",
		"indicators.view", "processes:edit", "superuser",
	}
	if got := g.Permissions.Sorted(); !reflect.DeepEqual(got, wantPerms) {
		t.Fatalf("permissions = %v, want %v", got, wantPerms)
	}
	if got := g.Roles.Sorted(); !reflect.DeepEqual(got, []string{"Calidad", "admin", "auditor"}) {
		t.Fatalf("roles = %v", got)
	}
	if got := g.ResourcePermissions("audits"); !reflect.DeepEqual(got, []string{"export", "view"}) {
		t.Fatalf("audits actions = %v", got)
	}
	if got := g.ResourcePermissions("processes"); !reflect.DeepEqual(got, []string{"edit"}) {
		t.Fatalf("processes actions = %v", got)
	}
	if got := g.ResourcePermissions("missing"); len(got) != 0 {
		t.Fatalf("expected no actions, got %v", got)
	}
}

func TestFromPayloadResourceMap(t *testing.T) {
	p := decodePayload(t, `{"permissions": {"audits": ["view", "edit"]}, "roles": []}`)
	g, err := FromPayload(p)
	if err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if !g.Permissions.HasAll("audits.view", "audits.edit") {
		t.Fatalf("unexpected permissions %v", g.Permissions.Sorted())
	}
}

func TestFromPayloadEmpty(t *testing.T) {
	g, err := FromPayload(Payload{})
	if err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if !g.Empty() {
		t.Fatal("expected empty grants")
	}
}

func TestFromPayloadRejectsUnknownEntries(t *testing.T) {
	cases := []string{
		`{"permissions": [42]}`,
		`{"permissions": [{"resource": "audits"}]}`,
		`{"permissions": [{"codename": 7}]}`,
		`{"permissions": "audits.view"}`,
		`{"roles": [true]}`,
		`{"roles": [{}]}`,
		`{"permissions_by_resource": ["audits"]}`,
		`{"permissions_by_resource": {"audits": "view"}}`,
	}
	for _, raw := range cases {
		_, err := FromPayload(decodePayload(t, raw))
		if !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
}

func TestGrantsCacheRoundTripKeepsTimestamp(t *testing.T) {
	g := EmptyGrants()
	g.Grant("audits.view")
	g.Roles.Add("admin")

	at := time.UnixMilli(1_700_000_000_000)
	c := g.ToCache(at)
	if c.Timestamp != at.UnixMilli() {
		t.Fatalf("timestamp = %d", c.Timestamp)
	}

	back := FromCache(c)
	if !back.Permissions.Has("audits.view") || !back.Roles.Has("admin") {
		t.Fatal("cache conversion lost members")
	}
	if got := back.ResourcePermissions("audits"); !reflect.DeepEqual(got, []string{"view"}) {
		t.Fatalf("resource actions = %v", got)
	}

	if unset := g.ToCache(time.Time{}); unset.Timestamp != 0 {
		t.Fatalf("zero time must leave timestamp unset, got %d", unset.Timestamp)
	}
}

func TestGrantsCloneIsDeep(t *testing.T) {
	g := EmptyGrants()
	g.Grant("audits.view")
	c := g.Clone()
	c.Grant("audits.edit")
	if g.Permissions.Has("audits.edit") || g.ByResource["audits"].Has("edit") {
		t.Fatal("clone aliases the original")
	}
}
