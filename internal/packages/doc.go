// SPDX-License-Identifier: MPL-2.0

// Package packages refreshes the apt index against the registered vendor
// repository and installs the ODBC driver packages. The driver is only
// installed when its license has been explicitly accepted.
package packages
