package mockmodel

// Page is a sample page served under /pages/ for collector demos.
type Page struct {
	Path        string
	Description string
	HTML        string
}

// SamplePages returns the demo pages.
func SamplePages() []Page {
	return []Page{
		{
			Path:        "/pages/home",
			Description: "Plain landing page without forms",
			HTML: `<!DOCTYPE html>
<html lang="en">
<head><title>Demo Bakery</title></head>
<body>
    <h1>Fresh bread every morning</h1>
    <p>Visit us downtown or order ahead.</p>
    <a href="/pages/menu">Menu</a>
    <a href="https://example.org/about">About</a>
</body>
</html>`,
		},
		{
			Path:        "/pages/login",
			Description: "Credential lure with a password form",
			HTML: `<!DOCTYPE html>
<html lang="en">
<head><title>Account Verification Required</title></head>
<body>
    <h2>Your account has been suspended</h2>
    <p>Unusual activity was detected. Verify your account immediately to restore access.
    Please confirm your password and one-time code.</p>
    <form action="/collect" method="post">
        <input type="email" name="email" placeholder="Email">
        <input type="password" name="password" placeholder="Password">
        <input type="text" name="otp_code" placeholder="OTP">
        <button type="submit">Verify</button>
    </form>
    <a href="http://bit.ly/restore-access">Restore access</a>
</body>
</html>`,
		},
		{
			Path:        "/pages/invoice",
			Description: "Payment lure asking for card details",
			HTML: `<!DOCTYPE html>
<html lang="en">
<head><title>Invoice overdue</title></head>
<body>
    <p>Your invoice is overdue. Update payment details to avoid service interruption.</p>
    <form action="/pay">
        <input type="text" name="card" placeholder="Card number">
        <input type="number" name="cvv" placeholder="CVV">
    </form>
    <a href="http://pay-portal.example.xyz/invoice">Pay now</a>
</body>
</html>`,
		},
	}
}
