package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding a user's current access-token JTI
func (r *CacheKeyStruct) UserSessionKey(userID int64) string {
	return fmt.Sprintf("login:%d", userID)
}

// RefreshTokenKey returns the cache key holding a user's current refresh-token JTI
func (r *CacheKeyStruct) RefreshTokenKey(userID int64) string {
	return fmt.Sprintf("refresh:%d", userID)
}

// OTPKey returns the cache key for a pending one-time code
func (r *CacheKeyStruct) OTPKey(otpType, identifier string) string {
	return fmt.Sprintf("otp:%s:%s", otpType, identifier)
}

// OTPVerifiedKey marks an identifier as verified through the OTP subsystem
func (r *CacheKeyStruct) OTPVerifiedKey(otpType, identifier string) string {
	return fmt.Sprintf("otp:%s:%s:verified", otpType, identifier)
}

// RateLimitKey returns the fixed-window counter key for a scope and client
func (r *CacheKeyStruct) RateLimitKey(scope, client string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, window)
}

// DepartmentPaperKey returns the cache key for a department's question paper
func (r *CacheKeyStruct) DepartmentPaperKey(departmentID int64) string {
	return fmt.Sprintf("department:%d:paper", departmentID)
}

// ExamEventsChannel is the Redis PubSub channel carrying exam lifecycle events
func (r *CacheKeyStruct) ExamEventsChannel() string {
	return "exams:events"
}

var CacheKey = NewCacheKeyStruct()
