package main

import (
	"encoding/json"
	"os"
)

type Config struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	Model       string `json:"model"`
	Listen      string `json:"listen"`
	RedisAddr   string `json:"redis_addr"`
	CallbackURL string `json:"callback_url"`
}

func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	err = json.Unmarshal(file, &conf)
	if err != nil {
		return nil, err
	}
	if conf.Listen == "" {
		conf.Listen = ":8080"
	}
	return &conf, nil
}
