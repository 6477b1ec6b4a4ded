package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshTokenFn  func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshTokenFn != nil {
		return m.refreshTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return nil
}

type mockUserService struct {
	setupFn  func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	createFn func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
	updateFn func(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) List(ctx context.Context) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockUserService) SetPassword(ctx context.Context, id string, password string) error {
	return nil
}

type mockDocumentService struct {
	createFn         func(ctx context.Context, caller *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.Document, error)
	getFn            func(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error)
	listOwnedFn      func(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error)
	listAssignedFn   func(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error)
	downloadFn       func(ctx context.Context, caller *domain.AuthContext, id string, kind driving.ArtifactKind) ([]byte, error)
	annotationsFn    func(ctx context.Context, caller *domain.AuthContext, id string) ([]*domain.Annotation, error)
	uploadSigImageFn func(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error)
	deleteFn         func(ctx context.Context, caller *domain.AuthContext, id string) error
}

func (m *mockDocumentService) Create(ctx context.Context, caller *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.Document, error) {
	if m.createFn != nil {
		return m.createFn(ctx, caller, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error) {
	if m.getFn != nil {
		return m.getFn(ctx, caller, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ListOwned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error) {
	if m.listOwnedFn != nil {
		return m.listOwnedFn(ctx, caller, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) ListAssigned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error) {
	if m.listAssignedFn != nil {
		return m.listAssignedFn(ctx, caller, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Download(ctx context.Context, caller *domain.AuthContext, id string, kind driving.ArtifactKind) ([]byte, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, caller, id, kind)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Annotations(ctx context.Context, caller *domain.AuthContext, id string) ([]*domain.Annotation, error) {
	if m.annotationsFn != nil {
		return m.annotationsFn(ctx, caller, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) UploadSignatureImage(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error) {
	if m.uploadSigImageFn != nil {
		return m.uploadSigImageFn(ctx, caller, data)
	}
	return "", errors.New("not implemented")
}

func (m *mockDocumentService) Delete(ctx context.Context, caller *domain.AuthContext, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, caller, id)
	}
	return errors.New("not implemented")
}

type mockLifecycleService struct {
	assignFn          func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AssignRequest) (*domain.RecipientAssignment, error)
	saveDraftFn       func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) error
	submitSignatureFn func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) (*driving.SubmitResult, error)
	sendBackFn        func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.SendBackRequest) error
	confirmFn         func(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error)
}

func (m *mockLifecycleService) Assign(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AssignRequest) (*domain.RecipientAssignment, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, caller, documentID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLifecycleService) SaveDraft(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) error {
	if m.saveDraftFn != nil {
		return m.saveDraftFn(ctx, caller, documentID, req)
	}
	return errors.New("not implemented")
}

func (m *mockLifecycleService) SubmitSignature(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) (*driving.SubmitResult, error) {
	if m.submitSignatureFn != nil {
		return m.submitSignatureFn(ctx, caller, documentID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLifecycleService) SendBack(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.SendBackRequest) error {
	if m.sendBackFn != nil {
		return m.sendBackFn(ctx, caller, documentID, req)
	}
	return errors.New("not implemented")
}

func (m *mockLifecycleService) Confirm(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error) {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, caller, documentID)
	}
	return nil, errors.New("not implemented")
}

// Test helpers

func withAuth(req *http.Request, userID string, role domain.Role) *http.Request {
	authCtx := &domain.AuthContext{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   role,
	}
	ctx := context.WithValue(req.Context(), authContextKey, authCtx)
	return req.WithContext(ctx)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(fileContent); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// Health endpoints

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got %s", response["status"])
	}
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func TestReadyHandler(t *testing.T) {
	server := &Server{version: "test", db: &mockPinger{}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ready" {
		t.Errorf("expected status 'ready', got %s", response["status"])
	}
}

func TestReadyHandler_DatabaseDown(t *testing.T) {
	server := &Server{version: "test", db: &mockPinger{err: errors.New("connection refused")}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()

	server.handleVersion(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["version"] != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response["version"])
	}
}

// Helper tests

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	data := map[string]string{"foo": "bar"}
	writeJSON(rr, http.StatusCreated, data)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response["error"])
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "/api/v1/documents", 50, 0},
		{"custom", "/api/v1/documents?limit=10&offset=30", 10, 30},
		{"over cap", "/api/v1/documents?limit=9999", 50, 0},
		{"garbage", "/api/v1/documents?limit=abc&offset=-5", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			limit, offset := parsePagination(req)
			if limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, limit)
			}
			if offset != tt.wantOffset {
				t.Errorf("expected offset %d, got %d", tt.wantOffset, offset)
			}
		})
	}
}

func TestWriteLifecycleError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAccessDenied, http.StatusForbidden},
		{domain.ErrNotAssigned, http.StatusForbidden},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidAnnotation, http.StatusBadRequest},
		{domain.ErrUnsupportedImageFormat, http.StatusUnsupportedMediaType},
		{domain.ErrArtifactMissing, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		writeLifecycleError(rr, tt.err, "fallback")
		if rr.Code != tt.want {
			t.Errorf("error %v: expected status %d, got %d", tt.err, tt.want, rr.Code)
		}
	}
}

// Authentication handler tests

func TestHandleLogin_Success(t *testing.T) {
	expiresAt := time.Now().Add(1 * time.Hour)
	mockAuth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			if req.Email == "test@example.com" && req.Password == "password123" {
				return &domain.LoginResponse{
					Token:        "test-token",
					RefreshToken: "refresh-token",
					ExpiresAt:    expiresAt,
					User: &domain.UserSummary{
						ID:    "user-1",
						Email: "test@example.com",
						Name:  "Test User",
						Role:  domain.RoleAdmin,
					},
				}, nil
			}
			return nil, domain.ErrInvalidCredentials
		},
	}

	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.LoginResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Token != "test-token" {
		t.Errorf("expected token 'test-token', got %s", response.Token)
	}
	if response.User.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %s", response.User.Email)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.LoginRequest{
		Email:    "wrong@example.com",
		Password: "wrongpass",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleLogin_InvalidJSON(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString("invalid json"))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	mockAuth := &mockAuthService{
		refreshTokenFn: func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrTokenExpired
		},
	}

	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.RefreshRequest{
		RefreshToken: "invalid-token",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleRefresh(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleLogout_WithToken(t *testing.T) {
	logoutCalled := false
	mockAuth := &mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			logoutCalled = true
			return nil
		},
	}

	server := &Server{authService: mockAuth}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := httptest.NewRecorder()

	server.handleLogout(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !logoutCalled {
		t.Error("logout should have been called")
	}
}

// Setup and user handler tests

func TestHandleSetup_Success(t *testing.T) {
	mockUser := &mockUserService{
		setupFn: func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
			return &driving.SetupResponse{
				User: &domain.User{
					ID:    "user-1",
					Email: req.Email,
					Name:  req.Name,
					Role:  domain.RoleAdmin,
				},
				Message: "Setup complete",
			}, nil
		},
	}

	server := &Server{userService: mockUser}

	body, _ := json.Marshal(driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "password123",
		Name:     "Admin User",
	})
	req := httptest.NewRequest("POST", "/api/v1/setup", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleSetup(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
}

func TestHandleSetup_AlreadyComplete(t *testing.T) {
	mockUser := &mockUserService{
		setupFn: func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
			return nil, domain.ErrAccessDenied
		},
	}

	server := &Server{userService: mockUser}

	body, _ := json.Marshal(driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "password",
		Name:     "Admin",
	})
	req := httptest.NewRequest("POST", "/api/v1/setup", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleSetup(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestHandleGetMe_Success(t *testing.T) {
	mockUser := &mockUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{
				ID:     id,
				Email:  "test@example.com",
				Name:   "Test User",
				Role:   domain.RoleAdmin,
				Active: true,
			}, nil
		},
	}

	server := &Server{userService: mockUser}

	req := withAuth(httptest.NewRequest("GET", "/api/v1/me", nil), "user-1", domain.RoleAdmin)
	rr := httptest.NewRecorder()

	server.handleGetMe(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.UserSummary
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %s", response.Email)
	}
}

func TestHandleGetMe_NoAuthContext(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	rr := httptest.NewRecorder()

	server.handleGetMe(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleCreateUser_AlreadyExists(t *testing.T) {
	mockUser := &mockUserService{
		createFn: func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
			return nil, domain.ErrAlreadyExists
		},
	}

	server := &Server{userService: mockUser}

	body, _ := json.Marshal(driving.CreateUserRequest{
		Email:    "existing@example.com",
		Password: "password",
		Name:     "User",
		Role:     domain.RoleMember,
	})
	req := httptest.NewRequest("POST", "/api/v1/users", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleCreateUser(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleDeleteUser_NotFound(t *testing.T) {
	mockUser := &mockUserService{
		deleteFn: func(ctx context.Context, id string) error {
			return domain.ErrNotFound
		},
	}

	server := &Server{userService: mockUser}

	req := httptest.NewRequest("DELETE", "/api/v1/users/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rr := httptest.NewRecorder()

	server.handleDeleteUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

// Document handler tests

func TestHandleCreateDocument_Success(t *testing.T) {
	var gotTitle string
	var gotContent []byte
	mockDoc := &mockDocumentService{
		createFn: func(ctx context.Context, caller *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.Document, error) {
			gotTitle = req.Title
			gotContent = req.Content
			return domain.NewDocument(caller.UserID, req.Title, "documents/doc-1/original.pdf"), nil
		},
	}

	server := &Server{docService: mockDoc}

	body, contentType := multipartBody(t, map[string]string{"title": "Lease Agreement"}, "file", "lease.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest("POST", "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleCreateDocument(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotTitle != "Lease Agreement" {
		t.Errorf("expected title 'Lease Agreement', got %s", gotTitle)
	}
	if !bytes.Equal(gotContent, []byte("%PDF-1.4 test")) {
		t.Error("uploaded content did not reach the service")
	}

	var response domain.Document
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != domain.DocumentStatusDraft {
		t.Errorf("expected draft status, got %s", response.Status)
	}
}

func TestHandleCreateDocument_MissingFile(t *testing.T) {
	server := &Server{docService: &mockDocumentService{}}

	body, contentType := multipartBody(t, map[string]string{"title": "No File"}, "", "", nil)
	req := httptest.NewRequest("POST", "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleCreateDocument(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleCreateDocument_NoAuth(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/documents", nil)
	rr := httptest.NewRecorder()

	server.handleCreateDocument(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleGetDocument_AccessDenied(t *testing.T) {
	mockDoc := &mockDocumentService{
		getFn: func(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error) {
			return nil, domain.ErrAccessDenied
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "stranger", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleGetDocument(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestHandleGetDocument_Success(t *testing.T) {
	mockDoc := &mockDocumentService{
		getFn: func(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error) {
			doc := domain.NewDocument("user-1", "Contract", "documents/doc-1/original.pdf")
			doc.ID = id
			return &domain.DocumentWithAssignments{
				Document: doc,
				Assignments: []*domain.RecipientAssignment{
					domain.NewAssignment(id, "user-2", nil),
				},
			}, nil
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleGetDocument(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response domain.DocumentWithAssignments
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Document.ID != "doc-1" {
		t.Errorf("expected document 'doc-1', got %s", response.Document.ID)
	}
	if len(response.Assignments) != 1 {
		t.Errorf("expected 1 assignment, got %d", len(response.Assignments))
	}
}

func TestHandleListOwnedDocuments_PassesPagination(t *testing.T) {
	var gotLimit, gotOffset int
	mockDoc := &mockDocumentService{
		listOwnedFn: func(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error) {
			gotLimit, gotOffset = limit, offset
			return []*domain.Document{}, nil
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents?limit=5&offset=10", nil)
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleListOwnedDocuments(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("expected limit=5 offset=10, got limit=%d offset=%d", gotLimit, gotOffset)
	}
}

func TestHandleDownloadDocument_Original(t *testing.T) {
	pdf := []byte("%PDF-1.4 content")
	mockDoc := &mockDocumentService{
		downloadFn: func(ctx context.Context, caller *domain.AuthContext, id string, kind driving.ArtifactKind) ([]byte, error) {
			if kind != driving.ArtifactOriginal {
				t.Errorf("expected original artifact, got %s", kind)
			}
			return pdf, nil
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1/download", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleDownloadDocument(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("expected Content-Type application/pdf, got %s", rr.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rr.Body.Bytes(), pdf) {
		t.Error("response body does not match artifact bytes")
	}
}

func TestHandleDownloadDocument_SignedMissing(t *testing.T) {
	mockDoc := &mockDocumentService{
		downloadFn: func(ctx context.Context, caller *domain.AuthContext, id string, kind driving.ArtifactKind) ([]byte, error) {
			return nil, domain.ErrArtifactMissing
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1/download?kind=signed", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleDownloadDocument(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleGetAnnotations_EmptySetIsArray(t *testing.T) {
	mockDoc := &mockDocumentService{
		annotationsFn: func(ctx context.Context, caller *domain.AuthContext, id string) ([]*domain.Annotation, error) {
			return nil, nil
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1/annotations", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleGetAnnotations(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestHandleUploadSignatureImage_UnsupportedFormat(t *testing.T) {
	mockDoc := &mockDocumentService{
		uploadSigImageFn: func(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error) {
			return "", domain.ErrUnsupportedImageFormat
		},
	}

	server := &Server{docService: mockDoc}

	body, contentType := multipartBody(t, nil, "file", "sig.gif", []byte("GIF89a"))
	req := httptest.NewRequest("POST", "/api/v1/signature-images", body)
	req.Header.Set("Content-Type", contentType)
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleUploadSignatureImage(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected status 415, got %d", rr.Code)
	}
}

func TestHandleUploadSignatureImage_Success(t *testing.T) {
	mockDoc := &mockDocumentService{
		uploadSigImageFn: func(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error) {
			return "signatures/user-2/img-1", nil
		},
	}

	server := &Server{docService: mockDoc}

	body, contentType := multipartBody(t, nil, "file", "sig.png", []byte("\x89PNG\r\n\x1a\n"))
	req := httptest.NewRequest("POST", "/api/v1/signature-images", body)
	req.Header.Set("Content-Type", contentType)
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleUploadSignatureImage(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	var response uploadSignatureImageResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Key != "signatures/user-2/img-1" {
		t.Errorf("expected blob key in response, got %s", response.Key)
	}
}

func TestHandleDeleteDocument_NotDraft(t *testing.T) {
	mockDoc := &mockDocumentService{
		deleteFn: func(ctx context.Context, caller *domain.AuthContext, id string) error {
			return domain.ErrInvalidTransition
		},
	}

	server := &Server{docService: mockDoc}

	req := httptest.NewRequest("DELETE", "/api/v1/documents/doc-1", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleDeleteDocument(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

// Lifecycle handler tests

func TestHandleAssign_Success(t *testing.T) {
	due := time.Now().Add(72 * time.Hour)
	mockLifecycle := &mockLifecycleService{
		assignFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AssignRequest) (*domain.RecipientAssignment, error) {
			if req.RecipientEmail != "signer@example.com" {
				t.Errorf("unexpected recipient email %s", req.RecipientEmail)
			}
			return domain.NewAssignment(documentID, "user-2", req.DueDate), nil
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AssignRequest{
		RecipientEmail: "signer@example.com",
		DueDate:        &due,
	})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/assign", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleAssign(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var response domain.RecipientAssignment
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != domain.AssignmentStatusPending {
		t.Errorf("expected pending status, got %s", response.Status)
	}
	if response.DueDate == nil {
		t.Error("expected due date to round trip")
	}
}

func TestHandleAssign_NotOwner(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		assignFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AssignRequest) (*domain.RecipientAssignment, error) {
			return nil, domain.ErrAccessDenied
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AssignRequest{RecipientEmail: "signer@example.com"})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/assign", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "stranger", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleAssign(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestHandleSaveDraft_Success(t *testing.T) {
	var gotReq driving.AnnotationSetRequest
	mockLifecycle := &mockLifecycleService{
		saveDraftFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) error {
			gotReq = req
			return nil
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AnnotationSetRequest{
		TextFields: []domain.TextFieldInput{
			{Page: 1, X: 100, Y: 200, Width: 150, Height: 20, Text: "John Doe"},
		},
		Signatures: []domain.SignatureInput{
			{Page: 2, X: 50, Y: 700, Width: 120, Height: 40, ImageKey: "signatures/user-2/img-1"},
		},
	})
	req := httptest.NewRequest("PUT", "/api/v1/documents/doc-1/draft", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSaveDraft(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(gotReq.TextFields) != 1 || len(gotReq.Signatures) != 1 {
		t.Errorf("annotation set did not reach the service intact: %+v", gotReq)
	}
}

func TestHandleSaveDraft_NotAssigned(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		saveDraftFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) error {
			return domain.ErrNotAssigned
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AnnotationSetRequest{})
	req := httptest.NewRequest("PUT", "/api/v1/documents/doc-1/draft", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "stranger", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSaveDraft(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestHandleSubmitSignature_Success(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		submitSignatureFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) (*driving.SubmitResult, error) {
			doc := domain.NewDocument("user-1", "Contract", "documents/doc-1/original.pdf")
			doc.ID = documentID
			doc.Status = domain.DocumentStatusWaitingConfirmation
			doc.SignedKey = "documents/doc-1/signed.pdf"
			assignment := domain.NewAssignment(documentID, caller.UserID, nil)
			assignment.MarkSigned()
			return &driving.SubmitResult{
				Document:    doc,
				Assignment:  assignment,
				AllComplete: true,
			}, nil
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AnnotationSetRequest{
		Signatures: []domain.SignatureInput{
			{Page: 1, X: 50, Y: 700, Width: 120, Height: 40, ImageKey: "signatures/user-2/img-1"},
		},
	})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/submit", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSubmitSignature(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response driving.SubmitResult
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.AllComplete {
		t.Error("expected all_complete true")
	}
	if response.Document.Status != domain.DocumentStatusWaitingConfirmation {
		t.Errorf("expected waiting_confirmation, got %s", response.Document.Status)
	}
}

func TestHandleSubmitSignature_WrongState(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		submitSignatureFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) (*driving.SubmitResult, error) {
			return nil, domain.ErrInvalidTransition
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.AnnotationSetRequest{})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/submit", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-2", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSubmitSignature(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleSendBack_Success(t *testing.T) {
	var gotNote string
	mockLifecycle := &mockLifecycleService{
		sendBackFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.SendBackRequest) error {
			gotNote = req.Note
			return nil
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.SendBackRequest{
		RecipientID: "user-2",
		Note:        "signature on wrong line",
	})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/send-back", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSendBack(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotNote != "signature on wrong line" {
		t.Errorf("note did not reach the service: %q", gotNote)
	}
}

func TestHandleSendBack_MissingNote(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		sendBackFn: func(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.SendBackRequest) error {
			return domain.ErrInvalidInput
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	body, _ := json.Marshal(driving.SendBackRequest{RecipientID: "user-2"})
	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/send-back", bytes.NewBuffer(body))
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleSendBack(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleConfirm_Success(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		confirmFn: func(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error) {
			doc := domain.NewDocument(caller.UserID, "Contract", "documents/doc-1/original.pdf")
			doc.ID = documentID
			doc.Status = domain.DocumentStatusCompleted
			doc.SignedKey = "documents/doc-1/signed.pdf"
			return doc, nil
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/confirm", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleConfirm(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response domain.Document
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != domain.DocumentStatusCompleted {
		t.Errorf("expected completed, got %s", response.Status)
	}
}

func TestHandleConfirm_NotAllSigned(t *testing.T) {
	mockLifecycle := &mockLifecycleService{
		confirmFn: func(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error) {
			return nil, domain.ErrInvalidTransition
		},
	}

	server := &Server{lifecycleService: mockLifecycle}

	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/confirm", nil)
	req.SetPathValue("id", "doc-1")
	req = withAuth(req, "user-1", domain.RoleMember)
	rr := httptest.NewRecorder()

	server.handleConfirm(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}
