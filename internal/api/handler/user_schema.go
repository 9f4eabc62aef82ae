package handler

import "time"

// --- Requests ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	NickName string `json:"nickName" validate:"max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email"    validate:"required,email"`
	Captcha  string `json:"captcha"  validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addressQuery struct {
	Address string `query:"address" validate:"required,email"`
}

type refreshQuery struct {
	RefreshToken string `query:"refreshToken" validate:"required"`
}

type updatePasswordRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Captcha  string `json:"captcha"  validate:"required,len=6,numeric"`
}

type updateUserRequest struct {
	NickName    *string `json:"nickName"    validate:"omitempty,max=50"`
	HeadPic     *string `json:"headPic"     validate:"omitempty,max=512"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Captcha     string  `json:"captcha"     validate:"required,len=6,numeric"`
}

type freezeQuery struct {
	ID string `query:"id" validate:"required"`
}

type listUsersQuery struct {
	PageQuery
	Username string `query:"username"`
	NickName string `query:"nickName"`
	Email    string `query:"email"`
}

// --- Responses ---

type userInfoResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	NickName    string    `json:"nickName"`
	Email       string    `json:"email"`
	HeadPic     string    `json:"headPic,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	IsFrozen    bool      `json:"isFrozen"`
	IsAdmin     bool      `json:"isAdmin"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreateTime  time.Time `json:"createTime"`
}

type loginResponse struct {
	UserInfo     userInfoResponse `json:"userInfo"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresAt    time.Time        `json:"expiresAt"`
}

type refreshResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type userListResponse struct {
	Users      []userInfoResponse `json:"users"`
	TotalCount int64              `json:"totalCount"`
	PageNo     int                `json:"pageNo"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}
