// Package validation checks intervention input before anything is written.
package validation

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/intervention-api/internal/apperr"
	"github.com/iliyamo/intervention-api/internal/dto"
)

// ContextType tells the validator which operation the input is for.
type ContextType int

const (
	Create ContextType = iota
	Update
)

// Context parameterises a validation run.  ID is the intervention being
// updated and is ignored for Create.
type Context struct {
	Type ContextType
	ID   uint64
}

// Failure is one violated rule before it is turned into a business error.
// Code is the name of an apperr.ErrorCode; names outside the catalogue are
// reported as InconsistentModel.
type Failure struct {
	Property       string
	Code           string
	Message        string
	AttemptedValue *string
}

// InterventionNames is the intervention lookup the validator needs.
type InterventionNames interface {
	NameTaken(ctx context.Context, name string, exceptID uint64) (bool, error)
}

// UserDirectory is the user lookup the validator needs.
type UserDirectory interface {
	MissingUsernames(ctx context.Context, names []string) ([]string, error)
}

// ToBusinessErrors converts failures, keeping their order.
type ToBusinessErrors func([]Failure) []apperr.BusinessError

// InterventionValidator runs the intervention rules.  Each rule issues its
// own queries and all rules run concurrently; every failure is collected
// and reported in rule declaration order as one *apperr.ValidationError.
type InterventionValidator struct {
	interventions InterventionNames
	users         UserDirectory
	convert       ToBusinessErrors
}

// NewInterventionValidator wires the validator to its lookups.
func NewInterventionValidator(interventions InterventionNames, users UserDirectory, convert ToBusinessErrors) *InterventionValidator {
	return &InterventionValidator{interventions: interventions, users: users, convert: convert}
}

const objectType = "InterventionModel"

type rule func(ctx context.Context, m *dto.InterventionModel, vc Context, lang string) ([]Failure, error)

// Validate returns nil when m satisfies every rule, a *apperr.ValidationError
// when it does not, and any other error when a lookup failed.
func (v *InterventionValidator) Validate(ctx context.Context, m *dto.InterventionModel, vc Context) error {
	lang := LanguageFrom(ctx)
	if m == nil {
		return v.fail([]Failure{{
			Code:    apperr.ModelNotSupplied.String(),
			Message: Message(lang, MsgModelNotSupplied),
		}})
	}

	rules := []rule{v.uniqueName, v.techniciansExist, v.clientExists, enumsDefined}
	results := make([][]Failure, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range rules {
		i, r := i, r
		g.Go(func() error {
			f, err := r(gctx, m, vc, lang)
			results[i] = f
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []Failure
	for _, f := range results {
		all = append(all, f...)
	}
	if len(all) == 0 {
		return nil
	}
	return v.fail(all)
}

func (v *InterventionValidator) fail(f []Failure) error {
	return &apperr.ValidationError{ObjectType: objectType, Errors: v.convert(f)}
}

// uniqueName skips an absent or empty name.  Unnamed interventions are
// stored with a NULL name, so any number of them may coexist; an empty
// name does not count as a value shared with other rows.
func (v *InterventionValidator) uniqueName(ctx context.Context, m *dto.InterventionModel, vc Context, lang string) ([]Failure, error) {
	if m.Name == nil || *m.Name == "" {
		return nil, nil
	}
	var except uint64
	if vc.Type == Update {
		except = vc.ID
	}
	taken, err := v.interventions.NameTaken(ctx, *m.Name, except)
	if err != nil || !taken {
		return nil, err
	}
	return []Failure{{
		Property:       "Name",
		Code:           apperr.InterventionNameAlreadyExists.String(),
		Message:        Format(Message(lang, MsgAlreadyExists), "Name", *m.Name),
		AttemptedValue: m.Name,
	}}, nil
}

func (v *InterventionValidator) techniciansExist(ctx context.Context, m *dto.InterventionModel, _ Context, lang string) ([]Failure, error) {
	if len(m.TechniciansNames) == 0 {
		return nil, nil
	}
	missing, err := v.users.MissingUsernames(ctx, m.TechniciansNames)
	if err != nil || len(missing) == 0 {
		return nil, err
	}
	value := strings.Join(missing, ", ")
	return []Failure{{
		Property:       "TechniciansNames",
		Code:           apperr.ResourceNotFound.String(),
		Message:        Format(Message(lang, MsgDoesNotExist), "TechniciansNames", value),
		AttemptedValue: &value,
	}}, nil
}

func (v *InterventionValidator) clientExists(ctx context.Context, m *dto.InterventionModel, _ Context, lang string) ([]Failure, error) {
	name := m.ClientName
	if strings.TrimSpace(name) != "" {
		missing, err := v.users.MissingUsernames(ctx, []string{name})
		if err != nil || len(missing) == 0 {
			return nil, err
		}
	}
	return []Failure{{
		Property:       "ClientName",
		Code:           apperr.ResourceNotFound.String(),
		Message:        Format(Message(lang, MsgDoesNotExist), "ClientName", name),
		AttemptedValue: &name,
	}}, nil
}

// enumsDefined reports a missing service type and values outside the enums
// under codes that are not in the catalogue, so they surface as
// InconsistentModel.  MaterialType is optional.
func enumsDefined(_ context.Context, m *dto.InterventionModel, _ Context, lang string) ([]Failure, error) {
	var out []Failure
	switch {
	case m.ServiceType == nil:
		out = append(out, Failure{
			Property: "ServiceType", Code: "NotNullValidator",
			Message: Format(Message(lang, MsgRequired), "ServiceType", ""),
		})
	case !m.ServiceType.IsValid():
		v := strconv.Itoa(int(*m.ServiceType))
		out = append(out, Failure{
			Property: "ServiceType", Code: "EnumValidator",
			Message:        Format(Message(lang, MsgNotInEnum), "ServiceType", v),
			AttemptedValue: &v,
		})
	}
	if m.MaterialType != nil && !m.MaterialType.IsValid() {
		v := strconv.Itoa(int(*m.MaterialType))
		out = append(out, Failure{
			Property: "MaterialType", Code: "EnumValidator",
			Message:        Format(Message(lang, MsgNotInEnum), "MaterialType", v),
			AttemptedValue: &v,
		})
	}
	return out, nil
}
