package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"edumart2/internal/authz"
	"edumart2/internal/jobs"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

// ValidationError names every missing field at once so a client can fix
// the whole request in one round trip. Validation runs before any write.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// UpstreamError wraps a failure from a dependent write and names the step
// that failed, so callers can tell a half-provisioned user from a rejected
// request.
type UpstreamError struct {
	Step string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provisioning step %q failed: %v", e.Step, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Enqueuer is the slice of asynq.Client the provisioning path needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type CreateStudentRequest struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	AdmissionNo   string    `json:"admission_no"`
	Grade         string    `json:"grade"`
	Section       *string   `json:"section,omitempty"`
	GuardianName  *string   `json:"guardian_name,omitempty"`
	GuardianPhone *string   `json:"guardian_phone,omitempty"`
}

type CreateTeacherRequest struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	EmployeeNo    string    `json:"employee_no"`
	Subject       string    `json:"subject"`
	Qualification *string   `json:"qualification,omitempty"`
}

type CreateStaffRequest struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	EmployeeNo  string    `json:"employee_no"`
	Department  string    `json:"department"`
	Designation *string   `json:"designation,omitempty"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProvisioningService creates identities (user row, role profile,
// credential issuance job) inside a tenant. The three writes are not a
// single transaction; a failure surfaces as an UpstreamError naming the
// step so operators can reconcile.
type ProvisioningService interface {
	CreateStudent(ctx context.Context, actor authz.AuthContext, req *CreateStudentRequest) (*models.User, error)
	CreateTeacher(ctx context.Context, actor authz.AuthContext, req *CreateTeacherRequest) (*models.User, error)
	CreateStaff(ctx context.Context, actor authz.AuthContext, req *CreateStaffRequest) (*models.User, error)
	CreateOrganization(ctx context.Context, actor authz.AuthContext, req *CreateOrganizationRequest) (*models.Tenant, error)
}

type provisioningService struct {
	userRepo    repositories.UserRepository
	studentRepo repositories.StudentRepository
	teacherRepo repositories.TeacherRepository
	staffRepo   repositories.StaffRepository
	tenantSvc   TenantService
	auditSvc    AuditLogsService
	enqueuer    Enqueuer
}

func NewProvisioningService(
	userRepo repositories.UserRepository,
	studentRepo repositories.StudentRepository,
	teacherRepo repositories.TeacherRepository,
	staffRepo repositories.StaffRepository,
	tenantSvc TenantService,
	auditSvc AuditLogsService,
	enqueuer Enqueuer,
) ProvisioningService {
	return &provisioningService{
		userRepo:    userRepo,
		studentRepo: studentRepo,
		teacherRepo: teacherRepo,
		staffRepo:   staffRepo,
		tenantSvc:   tenantSvc,
		auditSvc:    auditSvc,
		enqueuer:    enqueuer,
	}
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		// Stable order keeps error messages deterministic for clients.
		sort.Strings(missing)
		return &ValidationError{Missing: missing}
	}
	return nil
}

// createIdentity writes the user row, enqueues credential issuance and
// records the audit entry. The caller has already validated and written
// nothing.
func (s *provisioningService) createIdentity(ctx context.Context, actor authz.AuthContext, tenantID uuid.UUID, role, firstName, lastName, email string, phone *string) (*models.User, error) {
	decision := authz.Authorize(actor, "create", authz.Resource{Type: role, TenantID: &tenantID})
	if !decision.Allowed {
		return nil, &AuthorizationError{Reason: decision.Reason}
	}

	email = strings.ToLower(strings.TrimSpace(email))
	exists, err := s.userRepo.ExistsByTenantEmail(ctx, tenantID, email)
	if err != nil {
		return nil, &UpstreamError{Step: "user_lookup", Err: err}
	}
	if exists {
		return nil, ErrDuplicateMember
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		TenantID:  &tenantID,
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Phone:     phone,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, &UpstreamError{Step: "user_create", Err: err}
	}
	return user, nil
}

func (s *provisioningService) finishIdentity(ctx context.Context, actor authz.AuthContext, user *models.User) {
	task, err := jobs.NewCredentialIssueTask(user.ID)
	if err == nil {
		_, err = s.enqueuer.EnqueueContext(ctx, task)
	}
	if err != nil {
		// The hourly reconciliation sweep re-enqueues users without
		// credentials, so a lost enqueue heals itself.
		log.Printf("Failed to enqueue credential issuance for user %s: %v", user.ID, err)
	}

	if err := s.auditSvc.LogActivity(ctx, user.TenantID, models.AuditMemberProvisioned, "user", user.ID.String(), &actor.UserID, models.JSONB{
		"email": user.Email,
		"role":  user.Role,
	}); err != nil {
		log.Printf("Failed to write audit log for provisioned user %s: %v", user.ID, err)
	}
}

func (s *provisioningService) CreateStudent(ctx context.Context, actor authz.AuthContext, req *CreateStudentRequest) (*models.User, error) {
	if err := requireFields(map[string]string{
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"email":        req.Email,
		"admission_no": req.AdmissionNo,
		"grade":        req.Grade,
	}); err != nil {
		return nil, err
	}
	if req.TenantID == uuid.Nil {
		return nil, &ValidationError{Missing: []string{"tenant_id"}}
	}

	user, err := s.createIdentity(ctx, actor, req.TenantID, models.RoleStudent, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &models.StudentProfile{
		ID:            uuid.New(),
		TenantID:      req.TenantID,
		UserID:        user.ID,
		AdmissionNo:   req.AdmissionNo,
		Grade:         req.Grade,
		Section:       req.Section,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.studentRepo.Create(ctx, profile); err != nil {
		return nil, &UpstreamError{Step: "student_profile", Err: err}
	}

	s.finishIdentity(ctx, actor, user)
	return user, nil
}

func (s *provisioningService) CreateTeacher(ctx context.Context, actor authz.AuthContext, req *CreateTeacherRequest) (*models.User, error) {
	if err := requireFields(map[string]string{
		"first_name":  req.FirstName,
		"last_name":   req.LastName,
		"email":       req.Email,
		"employee_no": req.EmployeeNo,
		"subject":     req.Subject,
	}); err != nil {
		return nil, err
	}
	if req.TenantID == uuid.Nil {
		return nil, &ValidationError{Missing: []string{"tenant_id"}}
	}

	user, err := s.createIdentity(ctx, actor, req.TenantID, models.RoleTeacher, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &models.TeacherProfile{
		ID:            uuid.New(),
		TenantID:      req.TenantID,
		UserID:        user.ID,
		EmployeeNo:    req.EmployeeNo,
		Subject:       req.Subject,
		Qualification: req.Qualification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.teacherRepo.Create(ctx, profile); err != nil {
		return nil, &UpstreamError{Step: "teacher_profile", Err: err}
	}

	s.finishIdentity(ctx, actor, user)
	return user, nil
}

func (s *provisioningService) CreateStaff(ctx context.Context, actor authz.AuthContext, req *CreateStaffRequest) (*models.User, error) {
	if err := requireFields(map[string]string{
		"first_name":  req.FirstName,
		"last_name":   req.LastName,
		"email":       req.Email,
		"employee_no": req.EmployeeNo,
		"department":  req.Department,
	}); err != nil {
		return nil, err
	}
	if req.TenantID == uuid.Nil {
		return nil, &ValidationError{Missing: []string{"tenant_id"}}
	}

	user, err := s.createIdentity(ctx, actor, req.TenantID, models.RoleStaff, req.FirstName, req.LastName, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &models.StaffProfile{
		ID:          uuid.New(),
		TenantID:    req.TenantID,
		UserID:      user.ID,
		EmployeeNo:  req.EmployeeNo,
		Department:  req.Department,
		Designation: req.Designation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.staffRepo.Create(ctx, profile); err != nil {
		return nil, &UpstreamError{Step: "staff_profile", Err: err}
	}

	s.finishIdentity(ctx, actor, user)
	return user, nil
}

func (s *provisioningService) CreateOrganization(ctx context.Context, actor authz.AuthContext, req *CreateOrganizationRequest) (*models.Tenant, error) {
	if err := requireFields(map[string]string{
		"name": req.Name,
		"slug": req.Slug,
	}); err != nil {
		return nil, err
	}

	// Organizations sit above tenants, so only a super admin may mint one.
	if !actor.IsAuthenticated {
		return nil, &AuthorizationError{Reason: authz.DenyNotAuthenticated}
	}
	if !actor.IsSuperAdmin() {
		return nil, &AuthorizationError{Reason: authz.DenyRoleMismatch}
	}

	tenant := &models.Tenant{
		Name: req.Name,
		Slug: req.Slug,
	}
	if err := s.tenantSvc.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if err := s.auditSvc.LogActivity(ctx, nil, models.AuditOrganizationCreated, "tenant", tenant.ID.String(), &actor.UserID, models.JSONB{
		"name": tenant.Name,
		"slug": tenant.Slug,
	}); err != nil {
		log.Printf("Failed to write audit log for organization %s: %v", tenant.ID, err)
	}
	return tenant, nil
}
