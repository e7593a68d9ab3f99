package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/community-hub/internal/core/domain"
	"github.com/lorrc/community-hub/internal/core/ports"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockMembershipRepository is a mock implementation of ports.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{}
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	args := m.Called(ctx, membership)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Get(ctx context.Context, communityID string, userID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, communityID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Update(ctx context.Context, membership *domain.Membership) (*domain.Membership, error) {
	args := m.Called(ctx, membership)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) List(ctx context.Context, communityID string, status *domain.MembershipStatus) ([]*domain.Membership, error) {
	args := m.Called(ctx, communityID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

// MockChatMessageRepository is a mock implementation of ports.ChatMessageRepository
type MockChatMessageRepository struct {
	mock.Mock
}

func NewMockChatMessageRepository() *MockChatMessageRepository {
	return &MockChatMessageRepository{}
}

func (m *MockChatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) (*domain.ChatMessage, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatMessageRepository) ListAfter(ctx context.Context, communityID string, afterID int64, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, communityID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockMaintenanceRepository is a mock implementation of ports.MaintenanceRepository
type MockMaintenanceRepository struct {
	mock.Mock
}

func NewMockMaintenanceRepository() *MockMaintenanceRepository {
	return &MockMaintenanceRepository{}
}

func (m *MockMaintenanceRepository) Create(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}

func (m *MockMaintenanceRepository) GetByID(ctx context.Context, communityID string, id int64) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, communityID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}

func (m *MockMaintenanceRepository) Update(ctx context.Context, request *domain.MaintenanceRequest) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}

func (m *MockMaintenanceRepository) List(ctx context.Context, params ports.ListMaintenanceRepoParams) ([]*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MaintenanceRequest), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) EmitToRoom(communityID string, name domain.EventName, payload any) {
	m.Called(communityID, name, payload)
}

func (m *MockEventBroadcaster) EmitToPrincipal(userID uuid.UUID, name domain.EventName, payload any) {
	m.Called(userID, name, payload)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Register(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	args := m.Called(ctx, fullName, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockChatService is a mock implementation of ports.ChatService
type MockChatService struct {
	mock.Mock
}

func NewMockChatService() *MockChatService {
	return &MockChatService{}
}

func (m *MockChatService) PostMessage(ctx context.Context, params ports.CreateMessageParams) (*domain.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, params ports.ListMessagesParams) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockMaintenanceService is a mock implementation of ports.MaintenanceService
type MockMaintenanceService struct {
	mock.Mock
}

func NewMockMaintenanceService() *MockMaintenanceService {
	return &MockMaintenanceService{}
}

func (m *MockMaintenanceService) CreateRequest(ctx context.Context, params ports.CreateMaintenanceParams) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}

func (m *MockMaintenanceService) UpdateStatus(ctx context.Context, params ports.UpdateMaintenanceStatusParams) (*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaintenanceRequest), args.Error(1)
}

func (m *MockMaintenanceService) ListRequests(ctx context.Context, params ports.ListMaintenanceParams) ([]*domain.MaintenanceRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MaintenanceRequest), args.Error(1)
}

// MockMembershipService is a mock implementation of ports.MembershipService
type MockMembershipService struct {
	mock.Mock
}

func NewMockMembershipService() *MockMembershipService {
	return &MockMembershipService{}
}

func (m *MockMembershipService) RequestMembership(ctx context.Context, communityID string, actor domain.Principal) (*domain.Membership, error) {
	args := m.Called(ctx, communityID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipService) ApproveMembership(ctx context.Context, communityID string, userID uuid.UUID, actor domain.Principal) (*domain.Membership, error) {
	args := m.Called(ctx, communityID, userID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipService) ListMembers(ctx context.Context, communityID string, status *domain.MembershipStatus, viewer domain.Principal) ([]*domain.Membership, error) {
	args := m.Called(ctx, communityID, status, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func (m *MockMembershipService) IsMember(ctx context.Context, communityID string, principal domain.Principal) (bool, error) {
	args := m.Called(ctx, communityID, principal)
	return args.Bool(0), args.Error(1)
}

// MockTransactionManager runs the function inline without a real transaction.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
