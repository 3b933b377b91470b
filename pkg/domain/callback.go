package domain

const SettingsCallbackPrefix = "settings:"
