package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tenantctl/internal/app"
	"github.com/neomorfeo/tenantctl/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID                  string `json:"id" doc:"Unique identifier"`
	Name                string `json:"name" doc:"Display name"`
	Slug                string `json:"slug" doc:"URL-friendly identifier"`
	Status              string `json:"status" doc:"Lifecycle state"`
	Plan                string `json:"plan" doc:"Subscription plan"`
	CancellationReason  string `json:"cancellation_reason,omitempty" doc:"Why deletion was requested"`
	DeletionScheduledAt string `json:"deletion_scheduled_at,omitempty" doc:"End of the grace period (ISO 8601)"`
	DaysUntilDeletion   *int   `json:"days_until_deletion,omitempty" doc:"Whole days until deletion; negative when overdue"`
	DeletedAt           string `json:"deleted_at,omitempty" doc:"Soft-delete timestamp (ISO 8601)"`
	CreatedAt           string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt           string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	resp := TenantResponse{
		ID:                 t.ID,
		Name:               t.Name,
		Slug:               t.Slug,
		Status:             string(t.Status),
		Plan:               string(t.Plan),
		CancellationReason: t.CancellationReason,
		CreatedAt:          t.CreatedAt.Format(timeFormat),
		UpdatedAt:          t.UpdatedAt.Format(timeFormat),
	}
	if t.DeletionScheduledAt != nil {
		resp.DeletionScheduledAt = t.DeletionScheduledAt.Format(timeFormat)
		if days, ok := t.DaysUntilDeletion(time.Now()); ok {
			resp.DaysUntilDeletion = &days
		}
	}
	if t.DeletedAt != nil {
		resp.DeletedAt = t.DeletedAt.Format(timeFormat)
	}
	return resp
}

// OperationResponse is the API representation of an in-flight
// provisioning operation.
type OperationResponse struct {
	ID          string `json:"id" doc:"Operation ID"`
	Status      string `json:"status" doc:"started, running, completed, or failed"`
	Progress    int    `json:"progress" doc:"Percentage complete (0-100)"`
	CurrentStep string `json:"current_step" doc:"The step currently executing"`
	Plan        string `json:"plan,omitempty" doc:"Subscription plan being provisioned"`
	TenantSlug  string `json:"tenant_slug,omitempty" doc:"Slug of the tenant being provisioned"`
	Message     string `json:"message,omitempty" doc:"Human-readable progress message"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toOperationResponse(id string, s domain.OperationStatus) OperationResponse {
	return OperationResponse{
		ID:          id,
		Status:      string(s.State),
		Progress:    s.Progress,
		CurrentStep: s.CurrentStep,
		Plan:        string(s.Plan),
		TenantSlug:  s.TenantSlug,
		Message:     s.Message,
		UpdatedAt:   s.UpdatedAt.Format(timeFormat),
	}
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Slug string `json:"slug" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-friendly identifier (lowercase, hyphens)"`
		Plan string `json:"plan,omitempty" default:"trial" enum:"trial,basic,premium,enterprise" doc:"Subscription plan"`
	}
}

type CreateTenantOutput struct {
	Body struct {
		Tenant      TenantResponse `json:"tenant"`
		OperationID string         `json:"operation_id" doc:"Poll this id for provisioning progress"`
	}
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status         string `query:"status" required:"false" doc:"Filter by status"`
	IncludeDeleted bool   `query:"include_deleted" required:"false" doc:"Include soft-deleted tenants"`
	Limit          int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset         int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

// --- Schedule deletion / restore ---

type ScheduleDeletionInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"500" doc:"Why the tenant is being cancelled"`
	}
}

type ScheduleDeletionOutput struct {
	Body TenantResponse
}

type RestoreInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type RestoreOutput struct {
	Body struct {
		Restored bool           `json:"restored" doc:"False when the grace period has already expired"`
		Tenant   TenantResponse `json:"tenant"`
	}
}

// --- Operation status ---

type GetOperationInput struct {
	ID string `path:"id" doc:"Operation ID"`
}

type GetOperationOutput struct {
	Body OperationResponse
}

type ListOperationsOutput struct {
	Body []OperationResponse
}

// Register adds all tenant API routes to the Huma API.
func Register(api huma.API, svc *app.TenantService, operations domain.OperationStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants",
		Summary:     "Create a new tenant and start provisioning",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		tenant, opID, err := svc.Create(ctx, input.Body.Name, input.Body.Slug, domain.Plan(input.Body.Plan))
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CreateTenantOutput{}
		out.Body.Tenant = toTenantResponse(tenant)
		out.Body.OperationID = opID
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			IncludeDeleted: input.IncludeDeleted,
			Limit:          input.Limit,
			Offset:         input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t)
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "schedule-tenant-deletion",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/schedule-deletion",
		Summary:     "Schedule a tenant for deletion after the grace period",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *ScheduleDeletionInput) (*ScheduleDeletionOutput, error) {
		tenant, err := svc.ScheduleForDeletion(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ScheduleDeletionOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/restore",
		Summary:     "Restore a tenant from pending deletion",
		Description: "Succeeds only within the grace period. After expiry the response reports restored=false; re-creation is a separate flow.",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *RestoreInput) (*RestoreOutput, error) {
		tenant, restored, err := svc.Restore(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &RestoreOutput{}
		out.Body.Restored = restored
		out.Body.Tenant = toTenantResponse(tenant)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-operation",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations/{id}",
		Summary:     "Poll an in-flight provisioning operation",
		Tags:        []string{"Operations"},
	}, func(_ context.Context, input *GetOperationInput) (*GetOperationOutput, error) {
		status, ok := operations.Get(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("operation not found")
		}
		return &GetOperationOutput{Body: toOperationResponse(input.ID, status)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-operations",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations",
		Summary:     "List all live provisioning operations",
		Tags:        []string{"Operations"},
	}, func(_ context.Context, _ *struct{}) (*ListOperationsOutput, error) {
		all := operations.List()
		resp := make([]OperationResponse, 0, len(all))
		for id, status := range all {
			resp = append(resp, toOperationResponse(id, status))
		}
		return &ListOperationsOutput{Body: resp}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}

	var slugErr *domain.SlugConflictError
	if errors.As(err, &slugErr) {
		return huma.Error409Conflict(slugErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	if errors.Is(err, domain.ErrStaleTenant) {
		return huma.Error409Conflict(err.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
