package config

type AppConfig struct {
	Server   ServerConfig
	Log      LogConfig
	Roster   Roster
	Profiles map[string]GameProfile
}

// LoadApp reads env config and then the YAML files it points at.
func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	roster, err := LoadRoster(serverCfg.AgentsFile)
	if err != nil {
		return AppConfig{}, err
	}
	profiles, err := LoadGameProfiles(serverCfg.GameProfilesFile)
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:   serverCfg,
		Log:      logCfg,
		Roster:   roster,
		Profiles: profiles,
	}, nil
}
