package utils

import (
	"os"
	"strconv"
)

// GetEnvDefault は環境変数を読み、未設定ならデフォルト値を返します。
func GetEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvIntDefault は整数の環境変数を読み、未設定・不正ならデフォルト値を返します。
func GetEnvIntDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
