package service

import (
	"context"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/security"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"

	"github.com/jinzhu/copier"
)

type UserService interface {
	Register(ctx context.Context, dto *dto.RegisterDTO) error
	Login(ctx context.Context, dto *dto.CredentialDTO) (*dto.LoginResultDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error)
	UpdateUserInfo(ctx context.Context, id uint64, dto *dto.UserDTO) error
	UpdatePasswordFromOld(ctx context.Context, id uint64, dto *dto.ChangePasswordDTO) error
	CancelUser(ctx context.Context, id uint64) error
}

type UserServiceImpl struct {
	userRepo      repository.UserRepo
	userRolesRepo repository.UserRolesRepo
}

func NewUserService(userRepo repository.UserRepo, userRolesRepo repository.UserRolesRepo) UserService {
	return &UserServiceImpl{
		userRepo:      userRepo,
		userRolesRepo: userRolesRepo,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) error {
	findUser, err := s.userRepo.GetUserByEmail(ctx, regDTO.Email)
	if err != nil {
		return err
	}
	if findUser != nil {
		return ErrUserEmailExist
	}

	user := &model.User{}
	err = copier.Copy(user, &regDTO)
	if err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return err
	}
	user.Password = &passwordHash

	// 注册用户默认为客户角色
	role := model.UserRole{
		UserID: user.ID,
		RoleID: 1,
	}
	roles := []*model.UserRole{&role}

	err = s.userRepo.CreateUser(ctx, user, &roles)
	if err != nil {
		return err
	}

	return nil
}

func (s *UserServiceImpl) Login(ctx context.Context, credDTO *dto.CredentialDTO) (*dto.LoginResultDTO, error) {
	if credDTO.Email == nil || credDTO.Password == nil {
		return nil, ErrMissingLoginCredentials
	}
	user, err := s.userRepo.GetUserByEmail(ctx, *credDTO.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}
	if user.Password == nil {
		return nil, ErrPasswordIncorrect
	}
	err = security.CheckPasswordHash(*credDTO.Password, *user.Password)
	if err != nil {
		return nil, ErrPasswordIncorrect
	}

	roleNames, err := s.getRoleNamesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := security.GenerateToken(user.ID, user.Email, user.Nickname, roleNames)
	if err != nil {
		return nil, err
	}

	userDTO := &dto.UserDTO{}
	if err = copier.Copy(userDTO, user); err != nil {
		return nil, err
	}
	userDTO.UserID = &user.ID
	userDTO.Roles = roleNames

	return &dto.LoginResultDTO{Token: token, User: *userDTO}, nil
}

// Logout 将 token 签名拉入黑名单，有效期与 token 一致
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	err = redis.SetWithExpiration(ctx, signature, true, time.Hour*24)
	if err != nil {
		return err
	}
	return nil
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	userDTO := &dto.UserDTO{}
	err = copier.Copy(userDTO, user)
	if err != nil {
		return nil, err
	}
	userDTO.UserID = &user.ID
	roleNames, err := s.getRoleNamesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	userDTO.Roles = roleNames
	return userDTO, nil
}

func (s *UserServiceImpl) UpdateUserInfo(ctx context.Context, id uint64, userDTO *dto.UserDTO) error {
	user := &model.User{}
	err := copier.Copy(user, userDTO)
	if err != nil {
		return err
	}
	user.ID = id
	user.Email = ""
	user.Password = nil
	return s.userRepo.UpdateUser(ctx, user)
}

func (s *UserServiceImpl) UpdatePasswordFromOld(ctx context.Context, id uint64, pwdDTO *dto.ChangePasswordDTO) error {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Password == nil {
		return ErrPasswordIncorrect
	}
	if err = security.CheckPasswordHash(*pwdDTO.OldPassword, *user.Password); err != nil {
		return ErrPasswordIncorrect
	}
	passwordHash, err := security.HashPassword(*pwdDTO.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateUser(ctx, &model.User{ID: id, Password: &passwordHash})
}

func (s *UserServiceImpl) CancelUser(ctx context.Context, id uint64) error {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.userRepo.DeleteUser(ctx, id)
}

func (s *UserServiceImpl) getRoleNamesForUser(ctx context.Context, userID uint64) ([]string, error) {
	roles, err := s.userRolesRepo.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}
	return roleNames, nil
}
