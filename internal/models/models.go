package models

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Subscription{},
		&Assignment{},
		&Course{},
		&SyncLog{},
		&SystemLog{},
	}
}
