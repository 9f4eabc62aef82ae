package handler

import (
	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

func toUserInfoResponse(p ports.UserProfile) userInfoResponse {
	return userInfoResponse{
		ID:          p.ID,
		Username:    p.Username,
		NickName:    p.NickName,
		Email:       p.Email,
		HeadPic:     p.Avatar,
		PhoneNumber: p.Phone,
		IsFrozen:    p.IsFrozen,
		IsAdmin:     p.IsAdmin,
		Roles:       nonNil(p.Roles),
		Permissions: nonNil(p.Permissions),
		CreateTime:  p.CreatedAt,
	}
}

func toLoginResponse(res *ports.AuthResult) loginResponse {
	return loginResponse{
		UserInfo:     toUserInfoResponse(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresAt:    res.Tokens.AccessExpiresAt,
	}
}

func toRefreshResponse(pair *domain.TokenPair) refreshResponse {
	return refreshResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func toUserListResponse(res *ports.ListUsersResult) userListResponse {
	users := make([]userInfoResponse, 0, len(res.Items))
	for _, p := range res.Items {
		users = append(users, toUserInfoResponse(p))
	}
	return userListResponse{
		Users:      users,
		TotalCount: res.Total,
		PageNo:     res.Page,
		PageSize:   res.Limit,
		TotalPages: res.TotalPages,
	}
}

// nonNil keeps JSON arrays as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
