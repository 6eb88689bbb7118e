package validation_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/iliyamo/intervention-api/internal/apperr"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/mapper"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/validation"
)

type fakeNames struct {
	byID map[uint64]string
}

func (f fakeNames) NameTaken(_ context.Context, name string, except uint64) (bool, error) {
	for id, n := range f.byID {
		if n == name && id != except {
			return true, nil
		}
	}
	return false, nil
}

type fakeUsers struct {
	known map[string]bool
	calls atomic.Int32
	err   error
}

func (f *fakeUsers) MissingUsernames(_ context.Context, names []string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, n := range names {
		if !f.known[strings.ToLower(n)] {
			out = append(out, n)
		}
	}
	return out, nil
}

func newValidator(users *fakeUsers) *validation.InterventionValidator {
	names := fakeNames{byID: map[uint64]string{1: "roof", 2: "cellar"}}
	return validation.NewInterventionValidator(names, users, mapper.ToBusinessErrors)
}

func strp(s string) *string { return &s }

func wiring() *model.ServiceType {
	st := model.ElectricalWiring
	return &st
}

func validationErr(t *testing.T, err error) *apperr.ValidationError {
	t.Helper()
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *apperr.ValidationError, got %v", err)
	}
	return ve
}

func TestValidModelPasses(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"carol": true, "tom": true}}
	m := &dto.InterventionModel{Name: strp("new"), ServiceType: wiring(), ClientName: "Carol", TechniciansNames: []string{"TOM"}}
	if err := newValidator(users).Validate(context.Background(), m, validation.Context{Type: validation.Create}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if users.calls.Load() != 2 {
		t.Fatalf("expected one technician query and one client query, got %d", users.calls.Load())
	}
}

func TestNilModel(t *testing.T) {
	ve := validationErr(t, newValidator(&fakeUsers{}).Validate(context.Background(), nil, validation.Context{}))
	if len(ve.Errors) != 1 || ve.Errors[0].Code != apperr.ModelNotSupplied {
		t.Fatalf("unexpected errors %+v", ve.Errors)
	}
}

func TestNameUniquenessDependsOnContext(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"carol": true}}
	v := newValidator(users)
	m := &dto.InterventionModel{Name: strp("roof"), ServiceType: wiring(), ClientName: "carol"}

	ve := validationErr(t, v.Validate(context.Background(), m, validation.Context{Type: validation.Create}))
	if ve.Errors[0].Code != apperr.InterventionNameAlreadyExists {
		t.Fatalf("expected name error, got %+v", ve.Errors)
	}
	if err := v.Validate(context.Background(), m, validation.Context{Type: validation.Update, ID: 1}); err != nil {
		t.Fatalf("own name must be accepted on update: %v", err)
	}
	if err := v.Validate(context.Background(), m, validation.Context{Type: validation.Update, ID: 2}); err == nil {
		t.Fatal("name of another row must be rejected on update")
	}
}

func TestAllFailuresAccumulateInRuleOrder(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"tom": true}}
	mt := model.MaterialType(99)
	st := model.ServiceType(42)
	m := &dto.InterventionModel{
		Name:             strp("cellar"),
		ServiceType:      &st,
		MaterialType:     &mt,
		ClientName:       "ghost",
		TechniciansNames: []string{"tom", "zed", "yan"},
	}
	ctx := validation.WithLanguage(context.Background(), "en")
	ve := validationErr(t, newValidator(users).Validate(ctx, m, validation.Context{Type: validation.Create}))

	want := []apperr.ErrorCode{
		apperr.InterventionNameAlreadyExists,
		apperr.ResourceNotFound,
		apperr.ResourceNotFound,
		apperr.InconsistentModel,
		apperr.InconsistentModel,
	}
	if len(ve.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), ve.Errors)
	}
	for i, c := range want {
		if ve.Errors[i].Code != c {
			t.Fatalf("error %d: expected %v, got %v", i, c, ve.Errors[i].Code)
		}
	}
	if *ve.Errors[1].ValueInFailure != "zed, yan" {
		t.Fatalf("unexpected technicians value %q", *ve.Errors[1].ValueInFailure)
	}
	if ve.Errors[2].Message != "Resource for 'ClientName' with value 'ghost' does not exist." {
		t.Fatalf("unexpected message %q", ve.Errors[2].Message)
	}
}

func TestBlankClientFailsWithoutQuery(t *testing.T) {
	users := &fakeUsers{}
	ve := validationErr(t, newValidator(users).Validate(context.Background(), &dto.InterventionModel{ServiceType: wiring(), ClientName: "  "}, validation.Context{}))
	if len(ve.Errors) != 1 || ve.Errors[0].Code != apperr.ResourceNotFound {
		t.Fatalf("unexpected errors %+v", ve.Errors)
	}
	if !strings.HasPrefix(ve.Errors[0].Message, "La ressource pour 'ClientName'") {
		t.Fatalf("expected default french message, got %q", ve.Errors[0].Message)
	}
	if users.calls.Load() != 0 {
		t.Fatalf("blank client must not be looked up, got %d calls", users.calls.Load())
	}
}

func TestMissingServiceTypeIsReported(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"carol": true}}
	ctx := validation.WithLanguage(context.Background(), "en")
	ve := validationErr(t, newValidator(users).Validate(ctx, &dto.InterventionModel{ClientName: "carol"}, validation.Context{Type: validation.Create}))
	if len(ve.Errors) != 1 || ve.Errors[0].Code != apperr.InconsistentModel {
		t.Fatalf("unexpected errors %+v", ve.Errors)
	}
	if ve.Errors[0].Message != "'ServiceType' must be supplied." {
		t.Fatalf("unexpected message %q", ve.Errors[0].Message)
	}
	if ve.Errors[0].ValueInFailure != nil {
		t.Fatal("a missing value has nothing to echo back")
	}
}

func TestFirstServiceTypeIsAccepted(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"carol": true}}
	st := model.ExcavationWork
	m := &dto.InterventionModel{ServiceType: &st, ClientName: "carol"}
	if err := newValidator(users).Validate(context.Background(), m, validation.Context{Type: validation.Create}); err != nil {
		t.Fatalf("explicit zero enum value must pass: %v", err)
	}
}

func TestUnnamedInterventionsSkipUniqueness(t *testing.T) {
	users := &fakeUsers{known: map[string]bool{"carol": true}}
	v := validation.NewInterventionValidator(fakeNames{byID: map[uint64]string{1: ""}}, users, mapper.ToBusinessErrors)
	for _, name := range []*string{nil, strp("")} {
		m := &dto.InterventionModel{Name: name, ServiceType: wiring(), ClientName: "carol"}
		if err := v.Validate(context.Background(), m, validation.Context{Type: validation.Create}); err != nil {
			t.Fatalf("unnamed intervention rejected: %v", err)
		}
	}
}

func TestLookupFailureIsNotAValidationError(t *testing.T) {
	boom := errors.New("db down")
	users := &fakeUsers{err: boom}
	err := newValidator(users).Validate(context.Background(), &dto.InterventionModel{ClientName: "carol"}, validation.Context{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestLanguage(t *testing.T) {
	cases := map[string]string{
		"":                  "fr",
		"en":                "en",
		"en-US,en;q=0.9":    "en",
		"FR-ca":             "fr",
		"de-DE,en;q=0.5":    "fr",
		" en ; q=0.8, fr":   "en",
	}
	for in, want := range cases {
		if got := validation.Language(in); got != want {
			t.Fatalf("Language(%q) = %q, want %q", in, got, want)
		}
	}
	if validation.Message("en", "Unknown") != "Unknown" {
		t.Fatal("unknown keys must be returned as-is")
	}
}
