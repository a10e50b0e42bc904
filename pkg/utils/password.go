package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt 单向哈希，盐在哈希串里自带；校验用 CheckPassword
func HashPassword(pw string) string {
	b, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b)
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
