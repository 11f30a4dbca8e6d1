package models

// ServiceCredentials holds the service selection and the database password.
type ServiceCredentials struct {
	MySQLPassword string // non-empty only when InstallMySQL is set
	InstallMySQL  bool
	InstallApache bool
	Reused        bool // password was loaded from a previous run
}
