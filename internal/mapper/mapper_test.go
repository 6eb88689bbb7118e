package mapper

import (
	"testing"

	"github.com/iliyamo/intervention-api/internal/apperr"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/validation"
)

func TestToGetInterventionModel(t *testing.T) {
	name := "roof"
	mt := model.Wood
	e := &model.Intervention{
		ID: 7, Name: &name, ServiceType: model.RoofingWork, MaterialType: &mt,
		Client:      &model.User{Username: "carol"},
		Technicians: []model.User{{Username: "tom"}, {Username: "ann"}},
	}
	got := ToGetInterventionModel(e)
	if got.ID != 7 || *got.Name != "roof" || got.Client.Name != "carol" || len(got.Technicians) != 2 || got.Technicians[1].Name != "ann" {
		t.Fatalf("unexpected model %+v", got)
	}

	row := ToInterventionModel(e)
	if row.ClientName != "carol" || len(row.TechniciansNames) != 2 || *row.MaterialType != model.Wood || *row.ServiceType != model.RoofingWork {
		t.Fatalf("unexpected row %+v", row)
	}
	e.ServiceType = model.ExcavationWork
	if *row.ServiceType != model.RoofingWork {
		t.Fatal("row must not alias the entity")
	}
}

func TestApplyInterventionModel(t *testing.T) {
	st := model.ExcavationWork
	e := &model.Intervention{ServiceType: model.RoofingWork}
	ApplyInterventionModel(e, &dto.InterventionModel{Name: new(string), ServiceType: &st})
	if e.Name != nil || e.ServiceType != model.ExcavationWork {
		t.Fatalf("unexpected entity %+v", e)
	}
}

func TestToGetInterventionModelWithoutClient(t *testing.T) {
	got := ToGetInterventionModel(&model.Intervention{ID: 1})
	if got.Client != nil || got.Technicians == nil {
		t.Fatalf("expected nil client and empty technicians, got %+v", got)
	}
	if rows := ToInterventionModels(nil); rows == nil || len(rows) != 0 {
		t.Fatal("expected empty non-nil slice")
	}
}

func TestToBusinessErrorsFallsBackToInconsistentModel(t *testing.T) {
	v := "9"
	errs := ToBusinessErrors([]validation.Failure{
		{Code: "ResourceNotFound", Message: "m1"},
		{Code: "EnumValidator", Message: "m2", AttemptedValue: &v},
	})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Code != apperr.ResourceNotFound || errs[1].Code != apperr.InconsistentModel {
		t.Fatalf("unexpected codes %v %v", errs[0].Code, errs[1].Code)
	}
	if errs[1].ValueInFailure == nil || *errs[1].ValueInFailure != "9" {
		t.Fatal("value in failure lost")
	}
}
