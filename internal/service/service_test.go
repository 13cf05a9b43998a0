package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beaconhub/beacon-registry/internal/db"
	"github.com/beaconhub/beacon-registry/internal/models"
	"github.com/beaconhub/beacon-registry/internal/security"
	"github.com/beaconhub/beacon-registry/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "service-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	st := store.New(conn, nil)
	return New(st, security.NewSecretManager(bcrypt.MinCost), nil), st
}

func mustOwner(t *testing.T, svc *Service, username string) {
	t.Helper()
	if _, err := svc.CreateOwner(context.Background(), OwnerInput{Username: username}); err != nil {
		t.Fatalf("create owner %s: %v", username, err)
	}
}

func mustProject(t *testing.T, svc *Service, owner, name string) (*models.Project, string) {
	t.Helper()
	project, secret, err := svc.CreateProject(context.Background(), owner, ProjectInput{Name: name})
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return project, secret
}

func mustBeacon(t *testing.T, svc *Service, projectID uint64, uuid, major, minor string) *models.Beacon {
	t.Helper()
	beacon, err := svc.CreateBeacon(context.Background(), projectID, BeaconInput{UUID: uuid, Major: major, Minor: minor})
	if err != nil {
		t.Fatalf("create beacon: %v", err)
	}
	return beacon
}

func mustGroup(t *testing.T, svc *Service, projectID uint64, name string) *models.BeaconGroup {
	t.Helper()
	group, err := svc.CreateGroup(context.Background(), projectID, GroupInput{Name: name})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return group
}

var testUUID = strings.Repeat("a", 36)

func TestScenario_ProjectBeaconGroupLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")

	project, secret := mustProject(t, svc, "alice", "P1")
	if len(secret) != security.SecretLength {
		t.Fatalf("expected secret length %d, got %d", security.SecretLength, len(secret))
	}

	beacon := mustBeacon(t, svc, project.ID, testUUID, "1", "1")
	if beacon.UUID != strings.ToUpper(testUUID) {
		t.Fatalf("expected uppercase uuid, got %q", beacon.UUID)
	}

	_, errDup := svc.CreateBeacon(ctx, project.ID, BeaconInput{UUID: testUUID, Major: "1", Minor: "1"})
	var dup *DuplicateError
	if !errors.As(errDup, &dup) {
		t.Fatalf("expected DuplicateError, got %v", errDup)
	}

	group := mustGroup(t, svc, project.ID, "G1")
	if _, errAdd := svc.AddBeaconToGroup(ctx, project.ID, group.ID, beacon.ID); errAdd != nil {
		t.Fatalf("add beacon to group: %v", errAdd)
	}

	if errDelete := svc.DeleteGroup(ctx, project.ID, group.ID, true); errDelete != nil {
		t.Fatalf("delete group: %v", errDelete)
	}
	stored, errGet := svc.GetBeacon(ctx, project.ID, beacon.ID)
	if errGet != nil {
		t.Fatalf("get beacon: %v", errGet)
	}
	if stored.BeaconGroupID != nil {
		t.Fatalf("expected beacon to be detached, got group %d", *stored.BeaconGroupID)
	}

	if errDelete := svc.DeleteProject(ctx, "alice", project.ID, true); errDelete != nil {
		t.Fatalf("delete project: %v", errDelete)
	}
	if _, errGet := svc.GetProject(ctx, "alice", project.ID); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", errGet)
	}
}

func TestCreateProject_StoresOnlyHash(t *testing.T) {
	svc, st := newTestService(t)
	mustOwner(t, svc, "alice")
	project, secret := mustProject(t, svc, "alice", "Lobby")

	stored, err := st.FindProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("find project: %v", err)
	}
	if stored.SecretHash == "" || stored.SecretHash == secret {
		t.Fatalf("expected a hash distinct from the plaintext, got %q", stored.SecretHash)
	}
	if !svc.secrets.Verify(secret, stored.SecretHash) {
		t.Fatalf("expected stored hash to verify the issued secret")
	}
}

func TestCreateProject_ValidationViolations(t *testing.T) {
	svc, _ := newTestService(t)
	mustOwner(t, svc, "alice")

	_, _, err := svc.CreateProject(context.Background(), "alice", ProjectInput{
		Name:        "",
		Description: strings.Repeat("d", models.ProjectDescriptionMaxLength+1),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	props := map[string]bool{}
	for _, v := range verr.Violations {
		props[v.Property] = true
	}
	if !props["name"] || !props["description"] {
		t.Fatalf("expected name and description violations, got %+v", verr.Violations)
	}
}

func TestCreateProject_UnknownOwner(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.CreateProject(context.Background(), "nobody", ProjectInput{Name: "P"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateOwner_RejectsDuplicateAndReserved(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")

	if _, err := svc.CreateOwner(ctx, OwnerInput{Username: "alice"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var verr *ValidationError
	if _, err := svc.CreateOwner(ctx, OwnerInput{Username: "Project"}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for reserved name, got %v", err)
	}
}

func TestBeaconFingerprint_NormalizationIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")

	beacon := mustBeacon(t, svc, project.ID, "  "+testUUID+" ", "ab", "c1")
	if beacon.Major != "AB" || beacon.Minor != "C1" {
		t.Fatalf("expected uppercase major/minor, got %q/%q", beacon.Major, beacon.Minor)
	}
	if NormalizeFingerprint(beacon.UUID) != beacon.UUID {
		t.Fatalf("expected normalization to be idempotent")
	}

	// Same fingerprint in another case is still a duplicate.
	_, err := svc.CreateBeacon(context.Background(), project.ID, BeaconInput{UUID: strings.ToUpper(testUUID), Major: "AB", Minor: "c1"})
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestUpdateBeacon_DuplicateCheckExcludesSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")
	first := mustBeacon(t, svc, project.ID, testUUID, "1", "1")
	second := mustBeacon(t, svc, project.ID, testUUID, "1", "2")

	desc := "entrance"
	updated, err := svc.UpdateBeacon(ctx, project.ID, first.ID, BeaconUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("update own description: %v", err)
	}
	if updated.Description != desc || !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("unexpected update result %+v", updated)
	}

	minor := "1"
	var dup *DuplicateError
	if _, err := svc.UpdateBeacon(ctx, project.ID, second.ID, BeaconUpdate{Minor: &minor}); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestDeleteGroup_DetachesAllMembers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")

	for _, n := range []int{0, 3} {
		group := mustGroup(t, svc, project.ID, "G")
		ids := make([]uint64, 0, n)
		for i := 0; i < n; i++ {
			b := mustBeacon(t, svc, project.ID, testUUID, string(rune('A'+n)), string(rune('1'+i)))
			if _, err := svc.AddBeaconToGroup(ctx, project.ID, group.ID, b.ID); err != nil {
				t.Fatalf("add: %v", err)
			}
			ids = append(ids, b.ID)
		}
		if err := svc.DeleteGroup(ctx, project.ID, group.ID, true); err != nil {
			t.Fatalf("delete group with %d members: %v", n, err)
		}
		if _, err := svc.GetGroup(ctx, project.ID, group.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected group to be gone, got %v", err)
		}
		for _, id := range ids {
			b, err := svc.GetBeacon(ctx, project.ID, id)
			if err != nil {
				t.Fatalf("get beacon: %v", err)
			}
			if b.BeaconGroupID != nil {
				t.Fatalf("expected beacon %d detached", id)
			}
		}
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")
	group := mustGroup(t, svc, project.ID, "G1")
	beacon := mustBeacon(t, svc, project.ID, testUUID, "1", "1")

	if err := svc.DeleteProject(ctx, "alice", project.ID, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed for project, got %v", err)
	}
	if err := svc.DeleteGroup(ctx, project.ID, group.ID, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed for group, got %v", err)
	}
	if err := svc.DeleteBeacon(ctx, project.ID, beacon.ID, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed for beacon, got %v", err)
	}
	if _, err := svc.GetGroup(ctx, project.ID, group.ID); err != nil {
		t.Fatalf("expected group to survive, got %v", err)
	}
}

func TestAddBeaconToGroup_ConflictKeepsCurrentGroup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")
	groupA := mustGroup(t, svc, project.ID, "A")
	groupB := mustGroup(t, svc, project.ID, "B")
	beacon := mustBeacon(t, svc, project.ID, testUUID, "1", "1")

	if _, err := svc.AddBeaconToGroup(ctx, project.ID, groupA.ID, beacon.ID); err != nil {
		t.Fatalf("add to A: %v", err)
	}
	if _, err := svc.AddBeaconToGroup(ctx, project.ID, groupB.ID, beacon.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	stored, err := svc.GetBeacon(ctx, project.ID, beacon.ID)
	if err != nil {
		t.Fatalf("get beacon: %v", err)
	}
	if stored.BeaconGroupID == nil || *stored.BeaconGroupID != groupA.ID {
		t.Fatalf("expected beacon to stay in group A")
	}

	members, err := svc.GroupMembers(ctx, project.ID, groupA.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].ID != beacon.ID {
		t.Fatalf("expected beacon as the only member, got %+v", members)
	}
}

func TestRemoveBeaconFromGroup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")
	groupA := mustGroup(t, svc, project.ID, "A")
	groupB := mustGroup(t, svc, project.ID, "B")
	beacon := mustBeacon(t, svc, project.ID, testUUID, "1", "1")

	if _, err := svc.RemoveBeaconFromGroup(ctx, project.ID, groupA.ID, beacon.ID); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for ungrouped beacon, got %v", err)
	}
	if _, err := svc.AddBeaconToGroup(ctx, project.ID, groupA.ID, beacon.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.RemoveBeaconFromGroup(ctx, project.ID, groupB.ID, beacon.ID); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for other group, got %v", err)
	}
	if _, err := svc.RemoveBeaconFromGroup(ctx, project.ID, groupA.ID, beacon.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stored, err := svc.GetBeacon(ctx, project.ID, beacon.ID)
	if err != nil {
		t.Fatalf("get beacon: %v", err)
	}
	if stored.BeaconGroupID != nil {
		t.Fatalf("expected beacon to be ungrouped")
	}
}

func TestDeleteProject_CascadesToChildren(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")
	keep, _ := mustProject(t, svc, "alice", "P2")
	group := mustGroup(t, svc, project.ID, "G1")
	beacon := mustBeacon(t, svc, project.ID, testUUID, "1", "1")
	kept := mustBeacon(t, svc, keep.ID, testUUID, "1", "1")
	if _, err := svc.AddBeaconToGroup(ctx, project.ID, group.ID, beacon.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.DeleteProject(ctx, "alice", project.ID, true); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := st.FindBeacon(ctx, beacon.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected beacon gone, got %v", err)
	}
	if _, err := st.FindGroup(ctx, group.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected group gone, got %v", err)
	}
	if _, err := st.FindBeacon(ctx, kept.ID); err != nil {
		t.Fatalf("expected other project's beacon to survive, got %v", err)
	}
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	mustOwner(t, svc, "bob")
	p1, _ := mustProject(t, svc, "alice", "P1")
	p2, _ := mustProject(t, svc, "bob", "P2")
	g2 := mustGroup(t, svc, p2.ID, "G2")
	b1 := mustBeacon(t, svc, p1.ID, testUUID, "1", "1")

	if _, err := svc.GetProject(ctx, "alice", p2.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner's project, got %v", err)
	}
	if _, err := svc.GetGroup(ctx, p1.ID, g2.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other project's group, got %v", err)
	}
	if _, err := svc.AddBeaconToGroup(ctx, p2.ID, g2.ID, b1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-project beacon, got %v", err)
	}
	if err := svc.DeleteProject(ctx, "bob", p1.ID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another owner's project, got %v", err)
	}
}

func TestSearch_EmptyFilterListsAllAndMissIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")

	rows, err := svc.SearchProjects(ctx, "alice", "")
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty list without error, got %v %v", rows, err)
	}
	project, _ := mustProject(t, svc, "alice", "Warehouse")
	mustProject(t, svc, "alice", "Office")

	rows, err = svc.SearchProjects(ctx, "alice", "WARE")
	if err != nil || len(rows) != 1 || rows[0].ID != project.ID {
		t.Fatalf("expected one match, got %v %v", rows, err)
	}
	if _, err := svc.SearchProjects(ctx, "alice", "garage"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mustBeacon(t, svc, project.ID, testUUID, "1", "1")
	mustBeacon(t, svc, project.ID, testUUID, "2", "1")
	beacons, err := svc.SearchBeacons(ctx, project.ID, BeaconQuery{Minor: "1"})
	if err != nil || len(beacons) != 2 {
		t.Fatalf("expected two beacons, got %v %v", beacons, err)
	}
	if _, err := svc.SearchBeacons(ctx, project.ID, BeaconQuery{Major: "9"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.SearchGroups(ctx, project.ID, "none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for groups, got %v", err)
	}
}

func TestAuthenticateBeaconLookup_UsesSecretAsTenant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	mustOwner(t, svc, "bob")
	p1, secret1 := mustProject(t, svc, "alice", "P1")
	p2, secret2 := mustProject(t, svc, "bob", "P2")
	b1 := mustBeacon(t, svc, p1.ID, testUUID, "1", "1")
	b2 := mustBeacon(t, svc, p2.ID, testUUID, "1", "1")

	got, err := svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: testUUID, Major: "1", Minor: "1", Secret: secret2})
	if err != nil {
		t.Fatalf("lookup with second secret: %v", err)
	}
	if got.ID != b2.ID {
		t.Fatalf("expected beacon %d, got %d", b2.ID, got.ID)
	}

	got, err = svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: testUUID, Major: "1", Minor: "1", Secret: strings.ToLower(secret1)})
	if err != nil {
		t.Fatalf("lookup with lowercased first secret: %v", err)
	}
	if got.ID != b1.ID {
		t.Fatalf("expected beacon %d, got %d", b1.ID, got.ID)
	}

	if _, err := svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: testUUID, Major: "1", Minor: "1", Secret: "wrong"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong secret, got %v", err)
	}
	var verr *ValidationError
	if _, err := svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: "short", Major: "1", Minor: "1", Secret: secret1}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestResetProjectSecret_InvalidatesPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, oldSecret := mustProject(t, svc, "alice", "P1")
	mustBeacon(t, svc, project.ID, testUUID, "1", "1")

	newSecret, err := svc.ResetProjectSecret(ctx, "alice", project.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if newSecret == oldSecret {
		t.Fatalf("expected a new secret")
	}
	if _, err := svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: testUUID, Major: "1", Minor: "1", Secret: oldSecret}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old secret to stop verifying, got %v", err)
	}
	if _, err := svc.AuthenticateBeaconLookup(ctx, LookupRequest{UUID: testUUID, Major: "1", Minor: "1", Secret: newSecret}); err != nil {
		t.Fatalf("expected new secret to verify, got %v", err)
	}
}

func TestUpdateProject_PartialAndValidated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")

	desc := "ground floor"
	updated, err := svc.UpdateProject(ctx, "alice", project.ID, ProjectUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "P1" || updated.Description != desc {
		t.Fatalf("unexpected update result %+v", updated)
	}

	long := strings.Repeat("n", models.ProjectNameMaxLength+1)
	var verr *ValidationError
	if _, err := svc.UpdateProject(ctx, "alice", project.ID, ProjectUpdate{Name: &long}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func violatedProperties(t *testing.T, err error) map[string]bool {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	props := map[string]bool{}
	for _, v := range verr.Violations {
		props[v.Property] = true
	}
	return props
}

func TestFieldLimits_BeaconAndGroup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustOwner(t, svc, "alice")
	project, _ := mustProject(t, svc, "alice", "P1")

	atLimit := BeaconInput{
		UUID:        strings.Repeat("a", models.BeaconUUIDLength),
		Major:       strings.Repeat("1", models.BeaconMajorMaxLength),
		Minor:       strings.Repeat("2", models.BeaconMinorMaxLength),
		Description: strings.Repeat("d", models.BeaconDescriptionMaxLength),
	}
	if _, err := svc.CreateBeacon(ctx, project.ID, atLimit); err != nil {
		t.Fatalf("expected beacon at field limits to be accepted, got %v", err)
	}

	_, err := svc.CreateBeacon(ctx, project.ID, BeaconInput{
		UUID:        strings.Repeat("a", models.BeaconUUIDLength+1),
		Major:       strings.Repeat("1", models.BeaconMajorMaxLength+1),
		Minor:       strings.Repeat("2", models.BeaconMinorMaxLength+1),
		Description: strings.Repeat("d", models.BeaconDescriptionMaxLength+1),
	})
	props := violatedProperties(t, err)
	for _, name := range []string{"uuid", "major", "minor", "description"} {
		if !props[name] {
			t.Fatalf("expected %s violation, got %+v", name, props)
		}
	}

	if _, err := svc.CreateGroup(ctx, project.ID, GroupInput{
		Name:        strings.Repeat("g", models.BeaconGroupNameMaxLength),
		Description: strings.Repeat("d", models.BeaconGroupDescriptionMaxLength),
	}); err != nil {
		t.Fatalf("expected group at field limits to be accepted, got %v", err)
	}
	_, err = svc.CreateGroup(ctx, project.ID, GroupInput{
		Name:        strings.Repeat("g", models.BeaconGroupNameMaxLength+1),
		Description: strings.Repeat("d", models.BeaconGroupDescriptionMaxLength+1),
	})
	props = violatedProperties(t, err)
	if !props["name"] || !props["description"] {
		t.Fatalf("expected name and description violations, got %+v", props)
	}
}
