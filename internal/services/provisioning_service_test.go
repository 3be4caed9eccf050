package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"edumart2/internal/authz"
	"edumart2/internal/models"
)

type ProvisioningServiceTestSuite struct {
	suite.Suite
	userRepo    *MockUserRepository
	studentRepo *MockStudentRepository
	teacherRepo *MockTeacherRepository
	staffRepo   *MockStaffRepository
	tenantRepo  *MockTenantRepository
	auditSvc    *MockAuditLogsService
	enqueuer    *MockEnqueuer
	service     ProvisioningService

	tenantID uuid.UUID
	adminID  uuid.UUID
	admin    authz.AuthContext
}

func (s *ProvisioningServiceTestSuite) SetupTest() {
	s.userRepo = new(MockUserRepository)
	s.studentRepo = new(MockStudentRepository)
	s.teacherRepo = new(MockTeacherRepository)
	s.staffRepo = new(MockStaffRepository)
	s.tenantRepo = new(MockTenantRepository)
	s.auditSvc = new(MockAuditLogsService)
	s.enqueuer = new(MockEnqueuer)

	s.tenantID = uuid.New()
	s.adminID = uuid.New()
	s.admin = authz.AuthContext{
		UserID:          s.adminID,
		TenantID:        &s.tenantID,
		Role:            models.RoleAdmin,
		Permissions:     authz.PermissionsForRole(models.RoleAdmin),
		IsAuthenticated: true,
	}

	tenantSvc := NewTenantService(s.tenantRepo, nil)
	s.service = NewProvisioningService(s.userRepo, s.studentRepo, s.teacherRepo, s.staffRepo, tenantSvc, s.auditSvc, s.enqueuer)
}

func (s *ProvisioningServiceTestSuite) validStudentRequest() *CreateStudentRequest {
	return &CreateStudentRequest{
		TenantID:    s.tenantID,
		FirstName:   "Lisa",
		LastName:    "Simpson",
		Email:       "lisa.simpson@example.com",
		AdmissionNo: "ADM-2026-014",
		Grade:       "8",
	}
}

func (s *ProvisioningServiceTestSuite) TestCreateStudentReportsAllMissingFields() {
	_, err := s.service.CreateStudent(context.Background(), s.admin, &CreateStudentRequest{
		TenantID: s.tenantID,
		Email:    "lisa.simpson@example.com",
	})

	var validationErr *ValidationError
	s.Require().ErrorAs(err, &validationErr)
	s.ElementsMatch([]string{"admission_no", "first_name", "grade", "last_name"}, validationErr.Missing)

	// Validation fails before any write happens.
	s.userRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
	s.studentRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
	s.enqueuer.AssertNotCalled(s.T(), "EnqueueContext", mock.Anything, mock.Anything)
}

func (s *ProvisioningServiceTestSuite) TestCreateStudentSuccess() {
	ctx := context.Background()
	s.userRepo.On("ExistsByTenantEmail", ctx, s.tenantID, "lisa.simpson@example.com").Return(false, nil)
	s.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	s.studentRepo.On("Create", ctx, mock.AnythingOfType("*models.StudentProfile")).Return(nil)
	s.enqueuer.On("EnqueueContext", ctx, mock.Anything).Return(nil, nil).Once()
	s.auditSvc.On("LogActivity", ctx, mock.Anything, models.AuditMemberProvisioned, "user", mock.Anything, &s.adminID, mock.Anything).Return(nil)

	user, err := s.service.CreateStudent(ctx, s.admin, s.validStudentRequest())
	s.Require().NoError(err)
	s.Equal(models.RoleStudent, user.Role)
	s.Equal(&s.tenantID, user.TenantID)
	s.Empty(user.PasswordHash)
	s.enqueuer.AssertNumberOfCalls(s.T(), "EnqueueContext", 1)
}

func (s *ProvisioningServiceTestSuite) TestCreateStudentDeniedOutsideTenant() {
	req := s.validStudentRequest()
	req.TenantID = uuid.New()

	_, err := s.service.CreateStudent(context.Background(), s.admin, req)

	var authErr *AuthorizationError
	s.Require().ErrorAs(err, &authErr)
	s.Equal(authz.DenyTenantMismatch, authErr.Reason)
}

func (s *ProvisioningServiceTestSuite) TestCreateStudentProfileFailureNamesStep() {
	ctx := context.Background()
	s.userRepo.On("ExistsByTenantEmail", ctx, s.tenantID, "lisa.simpson@example.com").Return(false, nil)
	s.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	s.studentRepo.On("Create", ctx, mock.AnythingOfType("*models.StudentProfile")).Return(errors.New("constraint violation"))

	_, err := s.service.CreateStudent(ctx, s.admin, s.validStudentRequest())

	var upstreamErr *UpstreamError
	s.Require().ErrorAs(err, &upstreamErr)
	s.Equal("student_profile", upstreamErr.Step)
	s.enqueuer.AssertNotCalled(s.T(), "EnqueueContext", mock.Anything, mock.Anything)
}

func (s *ProvisioningServiceTestSuite) TestCreateStudentRejectsDuplicateEmail() {
	ctx := context.Background()
	s.userRepo.On("ExistsByTenantEmail", ctx, s.tenantID, "lisa.simpson@example.com").Return(true, nil)

	_, err := s.service.CreateStudent(ctx, s.admin, s.validStudentRequest())
	s.ErrorIs(err, ErrDuplicateMember)
}

func (s *ProvisioningServiceTestSuite) TestCreateTeacherSuccess() {
	ctx := context.Background()
	s.userRepo.On("ExistsByTenantEmail", ctx, s.tenantID, "edna.krabappel@example.com").Return(false, nil)
	s.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	s.teacherRepo.On("Create", ctx, mock.AnythingOfType("*models.TeacherProfile")).Return(nil)
	s.enqueuer.On("EnqueueContext", ctx, mock.Anything).Return(nil, nil)
	s.auditSvc.On("LogActivity", ctx, mock.Anything, models.AuditMemberProvisioned, "user", mock.Anything, &s.adminID, mock.Anything).Return(nil)

	user, err := s.service.CreateTeacher(ctx, s.admin, &CreateTeacherRequest{
		TenantID:   s.tenantID,
		FirstName:  "Edna",
		LastName:   "Krabappel",
		Email:      "Edna.Krabappel@example.com",
		EmployeeNo: "EMP-044",
		Subject:    "English",
	})
	s.Require().NoError(err)
	s.Equal(models.RoleTeacher, user.Role)
	s.Equal("edna.krabappel@example.com", user.Email)
}

func (s *ProvisioningServiceTestSuite) TestCreateStaffEnqueueFailureIsNonFatal() {
	ctx := context.Background()
	s.userRepo.On("ExistsByTenantEmail", ctx, s.tenantID, "willie@example.com").Return(false, nil)
	s.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	s.staffRepo.On("Create", ctx, mock.AnythingOfType("*models.StaffProfile")).Return(nil)
	s.enqueuer.On("EnqueueContext", ctx, mock.Anything).Return(nil, errors.New("redis down"))
	s.auditSvc.On("LogActivity", ctx, mock.Anything, models.AuditMemberProvisioned, "user", mock.Anything, &s.adminID, mock.Anything).Return(nil)

	user, err := s.service.CreateStaff(ctx, s.admin, &CreateStaffRequest{
		TenantID:   s.tenantID,
		FirstName:  "Willie",
		LastName:   "MacDougal",
		Email:      "willie@example.com",
		EmployeeNo: "EMP-099",
		Department: "Grounds",
	})
	s.Require().NoError(err)
	s.NotNil(user)
}

func (s *ProvisioningServiceTestSuite) TestCreateOrganizationRequiresSuperAdmin() {
	_, err := s.service.CreateOrganization(context.Background(), s.admin, &CreateOrganizationRequest{
		Name: "Shelbyville Elementary",
		Slug: "shelbyville",
	})

	var authErr *AuthorizationError
	s.Require().ErrorAs(err, &authErr)
	s.Equal(authz.DenyRoleMismatch, authErr.Reason)
}

func (s *ProvisioningServiceTestSuite) TestCreateOrganizationSuccess() {
	ctx := context.Background()
	superAdmin := authz.AuthContext{
		UserID:          uuid.New(),
		Role:            models.RoleSuperAdmin,
		IsAuthenticated: true,
	}
	s.tenantRepo.On("Create", ctx, mock.AnythingOfType("*models.Tenant")).Return(nil)
	s.auditSvc.On("LogActivity", ctx, (*uuid.UUID)(nil), models.AuditOrganizationCreated, "tenant", mock.Anything, &superAdmin.UserID, mock.Anything).Return(nil)

	tenant, err := s.service.CreateOrganization(ctx, superAdmin, &CreateOrganizationRequest{
		Name: "Shelbyville Elementary",
		Slug: "Shelbyville",
	})
	s.Require().NoError(err)
	s.Equal("shelbyville", tenant.Slug)
	s.Equal(models.TenantStatusActive, tenant.Status)
}

func TestProvisioningServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProvisioningServiceTestSuite))
}
