package customer

type Address struct {
	Street string
	City   string
	Zip    string `json:"zip_code"`
}

type Customer struct {
	Name      string
	Email     string
	Addresses []Address
	Primary   *Address
}
